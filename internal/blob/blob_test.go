package blob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/fpang/synthetic-patients/internal/retry"
)

func TestPutIfAbsent_SkipsExisting(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first, err := PutIfAbsent(ctx, store, Object{Key: "headshots/headshot_0001.png", Body: []byte("a")}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Skipped || first.URL != "mem://headshots/headshot_0001.png" {
		t.Errorf("unexpected first result: %+v", first)
	}

	second, err := PutIfAbsent(ctx, store, Object{Key: "headshots/headshot_0001.png", Body: []byte("b")}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.Skipped || second.URL != first.URL {
		t.Errorf("expected skip with same URL, got %+v", second)
	}
	if store.Puts() != 1 {
		t.Errorf("expected 1 put, got %d", store.Puts())
	}
	if obj, _ := store.Get("headshots/headshot_0001.png"); string(obj.Body) != "a" {
		t.Errorf("existing object must not change, got %q", obj.Body)
	}
}

func TestPutIfAbsent_Overwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	PutIfAbsent(ctx, store, Object{Key: "k", Body: []byte("a")}, false)

	res, err := PutIfAbsent(ctx, store, Object{Key: "k", Body: []byte("b")}, true)
	if err != nil || res.Skipped {
		t.Fatalf("expected overwrite, got %+v err=%v", res, err)
	}
	if obj, _ := store.Get("k"); string(obj.Body) != "b" {
		t.Errorf("expected overwritten body, got %q", obj.Body)
	}
}

func TestLayout(t *testing.T) {
	l := DefaultLayout
	if got := l.Headshot(7, "png"); got != "headshots/headshot_0007.png" {
		t.Errorf("Headshot = %s", got)
	}
	if got := l.Profile(12); got != "profiles/profile_0012.json" {
		t.Errorf("Profile = %s", got)
	}
	if got := l.Bundle(1, 10, ".zst"); got != "instructions/instructions_0001_0010.json.zst" {
		t.Errorf("Bundle = %s", got)
	}
	if got := l.Description(3); got != "descriptions/description_0003.txt" {
		t.Errorf("Description = %s", got)
	}
}

type fakeS3 struct {
	existing map[string]bool
	puts     []*s3.PutObjectInput
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.existing[*in.Key] {
		return &s3.HeadObjectOutput{}, nil
	}
	return nil, &s3types.NotFound{}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{existing: map[string]bool{"profiles/profile_0001.json": true}}
	policy := retry.NewPolicy(1, time.Millisecond)
	store := NewS3Store(fake, nil, S3Options{Bucket: "media", PublicBaseURL: "https://cdn.example.com/"}, policy)

	ok, err := store.Exists(ctx, "profiles/profile_0001.json")
	if err != nil || !ok {
		t.Errorf("expected existing object, got %v %v", ok, err)
	}
	ok, err = store.Exists(ctx, "profiles/profile_0002.json")
	if err != nil || ok {
		t.Errorf("expected missing object, got %v %v", ok, err)
	}

	err = store.Put(ctx, Object{Key: "a.png", Body: []byte("x"), ContentType: "image/png", Metadata: map[string]string{"caseid": "1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in := fake.puts[0]
	if *in.Bucket != "media" || *in.ContentType != "image/png" || *in.Tagging != projectTag || in.Metadata["caseid"] != "1" {
		t.Errorf("unexpected PutObjectInput: %+v", in)
	}
	if in.ContentEncoding != nil {
		t.Errorf("content encoding should be unset")
	}

	url, _ := store.URL(ctx, "a.png")
	if url != "https://cdn.example.com/a.png" {
		t.Errorf("unexpected URL %s", url)
	}
}

func TestIsNotFound(t *testing.T) {
	if isNotFound(errors.New("access denied")) {
		t.Error("plain error is not a 404")
	}
	if !isNotFound(&s3types.NotFound{}) {
		t.Error("NotFound should be recognised")
	}
}
