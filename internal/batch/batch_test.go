package batch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpang/synthetic-patients/internal/blob"
)

// funcProcessor adapts a function to Processor.
type funcProcessor struct {
	calls []int
	fn    func(caseID int) (Outcome, error)
}

func (f *funcProcessor) Name() string { return "test" }

func (f *funcProcessor) Process(_ context.Context, caseID int, _ Params) (Outcome, error) {
	f.calls = append(f.calls, caseID)
	return f.fn(caseID)
}

func okProcessor() *funcProcessor {
	return &funcProcessor{fn: func(id int) (Outcome, error) {
		return Outcome{Status: StatusOK, Result: map[string]int{"id": id}, Debug: id}, nil
	}}
}

func TestDriver_LimitCountsAttempts(t *testing.T) {
	proc := &funcProcessor{fn: func(id int) (Outcome, error) {
		if id%2 == 0 {
			return Outcome{Status: StatusNoRecord}, nil
		}
		return Outcome{Status: StatusOK}, nil
	}}
	run, err := NewDriver(proc).Run(context.Background(), Params{StartFrom: 3, EndAt: 100, Limit: 4})
	require.NoError(t, err)

	assert.Len(t, run.Processed, 4)
	assert.Equal(t, []int{3, 4, 5, 6}, proc.calls)
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, "test", run.Pipeline)
}

func TestDriver_RangeEndsBeforeLimit(t *testing.T) {
	proc := okProcessor()
	run, err := NewDriver(proc).Run(context.Background(), Params{StartFrom: 1, EndAt: 2, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, run.Processed, 2)
}

func TestDriver_ErrorsAndPanicsBecomeRecords(t *testing.T) {
	proc := &funcProcessor{fn: func(id int) (Outcome, error) {
		switch id {
		case 1:
			return Outcome{}, errors.New("model said no")
		case 2:
			panic("nil map")
		case 3:
			return Outcome{}, nil
		}
		return Outcome{Status: StatusOK}, nil
	}}
	run, err := NewDriver(proc).Run(context.Background(), Params{StartFrom: 1, EndAt: 4, Limit: 4})
	require.NoError(t, err)
	require.Len(t, run.Processed, 4)

	assert.Equal(t, StatusError, run.Processed[0].Status)
	assert.Equal(t, "model said no", run.Processed[0].Error)
	assert.Equal(t, StatusError, run.Processed[1].Status)
	assert.Contains(t, run.Processed[1].Error, "nil map")
	assert.Equal(t, StatusError, run.Processed[2].Status)
	assert.Equal(t, StatusOK, run.Processed[3].Status)
}

func TestDriver_DebugShortCircuits(t *testing.T) {
	proc := &funcProcessor{fn: func(id int) (Outcome, error) {
		if id == 1 {
			return Outcome{Status: StatusNoText}, nil
		}
		return Outcome{Status: StatusOK, Debug: id * 10}, nil
	}}
	run, err := NewDriver(proc).Run(context.Background(), Params{StartFrom: 1, EndAt: 10, Limit: 10, Debug: true})
	require.NoError(t, err)

	assert.Len(t, run.Processed, 2)
	require.NotNil(t, run.Debug)
	assert.Equal(t, 2, run.Debug.CaseID)
	assert.Equal(t, 20, run.Debug.Data)
}

func TestDriver_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	proc := &funcProcessor{}
	proc.fn = func(id int) (Outcome, error) {
		if id == 2 {
			cancel()
		}
		return Outcome{Status: StatusOK}, nil
	}
	run, err := NewDriver(proc).Run(ctx, Params{StartFrom: 1, EndAt: 10, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, run.Processed, 2)
}

func TestParams_Validate(t *testing.T) {
	assert.NoError(t, Params{StartFrom: 1, EndAt: 1, Limit: 1}.Validate())
	assert.Error(t, Params{StartFrom: 0, EndAt: 1, Limit: 1}.Validate())
	assert.Error(t, Params{StartFrom: 5, EndAt: 4, Limit: 1}.Validate())
	assert.Error(t, Params{StartFrom: 1, EndAt: 4, Limit: 0}.Validate())

	_, err := NewDriver(okProcessor()).Run(context.Background(), Params{})
	assert.Error(t, err)
}

func TestDriver_Bundling(t *testing.T) {
	store := blob.NewMemoryStore()
	bundler, err := NewBundler(store, blob.DefaultLayout, 2, CompressionNone)
	require.NoError(t, err)

	proc := &funcProcessor{fn: func(id int) (Outcome, error) {
		if id == 3 {
			return Outcome{Status: StatusNoText}, nil
		}
		if id == 4 {
			return Outcome{}, errors.New("bad json")
		}
		return Outcome{Status: StatusOK, Result: id}, nil
	}}
	run, err := NewDriver(proc, WithBundler(bundler)).Run(context.Background(), Params{StartFrom: 1, EndAt: 5, Limit: 5})
	require.NoError(t, err)

	// 1,2 flush at threshold; 4,5 flush at threshold; nothing left for the end.
	require.Len(t, run.Bundles, 2)
	assert.Equal(t, "instructions/instructions_0001_0002.json", run.Bundles[0].Key)
	assert.Equal(t, "instructions/instructions_0004_0005.json", run.Bundles[1].Key)
	assert.Equal(t, 2, store.Len())

	obj, ok := store.Get(run.Bundles[1].Key)
	require.True(t, ok)
	var doc bundleDoc
	require.NoError(t, json.Unmarshal(obj.Body, &doc))
	assert.Equal(t, run.RunID, doc.RunID)
	require.Len(t, doc.Records, 2)
	assert.Equal(t, StatusError, doc.Records[0].Status)
}

func TestDriver_FinalPartialBundleFlushed(t *testing.T) {
	store := blob.NewMemoryStore()
	bundler, err := NewBundler(store, blob.DefaultLayout, 10, CompressionNone)
	require.NoError(t, err)

	run, err := NewDriver(okProcessor(), WithBundler(bundler)).Run(context.Background(), Params{StartFrom: 1, EndAt: 3, Limit: 3})
	require.NoError(t, err)
	require.Len(t, run.Bundles, 1)
	assert.Equal(t, 3, run.Bundles[0].Count)
}

func TestDriver_DryRunSkipsBundles(t *testing.T) {
	store := blob.NewMemoryStore()
	bundler, err := NewBundler(store, blob.DefaultLayout, 1, CompressionNone)
	require.NoError(t, err)

	run, err := NewDriver(okProcessor(), WithBundler(bundler)).Run(context.Background(), Params{StartFrom: 1, EndAt: 3, Limit: 3, DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, run.Bundles)
	assert.Equal(t, 0, store.Len())
}

func TestBundler_Zstd(t *testing.T) {
	store := blob.NewMemoryStore()
	bundler, err := NewBundler(store, blob.DefaultLayout, 5, CompressionZstd)
	require.NoError(t, err)

	b := bundler.Start("run-1", "instructions", false)
	assert.Nil(t, b.Add(context.Background(), Record{CaseID: 7, Status: StatusOK}))
	ref := b.Flush(context.Background())
	require.NotNil(t, ref)
	assert.Equal(t, "instructions/instructions_0007_0007.json.zst", ref.Key)

	obj, ok := store.Get(ref.Key)
	require.True(t, ok)
	assert.Equal(t, "zstd", obj.ContentEncoding)

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	raw, err := dec.DecodeAll(obj.Body, nil)
	require.NoError(t, err)

	var doc bundleDoc
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "run-1", doc.RunID)
	assert.Equal(t, 1, doc.Count)
}

func TestBundler_ExistingBundleSkipped(t *testing.T) {
	store := blob.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), blob.Object{Key: "instructions/instructions_0001_0001.json", Body: []byte("{}")}))
	bundler, err := NewBundler(store, blob.DefaultLayout, 1, "")
	require.NoError(t, err)

	ref := bundler.Start("r", "instructions", false).Add(context.Background(), Record{CaseID: 1, Status: StatusOK})
	require.NotNil(t, ref)
	assert.True(t, ref.Skipped)
	obj, _ := store.Get(ref.Key)
	assert.Equal(t, "{}", string(obj.Body))
}

func TestNewBundler_UnknownCompression(t *testing.T) {
	_, err := NewBundler(blob.NewMemoryStore(), blob.DefaultLayout, 1, "gzip")
	assert.Error(t, err)
}
