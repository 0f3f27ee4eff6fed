package blob

import "fmt"

// Layout maps case identifiers to artifact keys.
type Layout struct {
	HeadshotPrefix    string
	ProfilePrefix     string
	InstructionPrefix string
	DescriptionPrefix string
	PadWidth          int
}

// DefaultLayout is the layout used when configuration leaves prefixes empty.
var DefaultLayout = Layout{
	HeadshotPrefix:    "headshots",
	ProfilePrefix:     "profiles",
	InstructionPrefix: "instructions",
	DescriptionPrefix: "descriptions",
	PadWidth:          4,
}

func (l Layout) pad(id int) string {
	w := l.PadWidth
	if w <= 0 {
		w = DefaultLayout.PadWidth
	}
	return fmt.Sprintf("%0*d", w, id)
}

// Headshot returns the image key for caseID, e.g. headshots/headshot_0007.png.
func (l Layout) Headshot(caseID int, ext string) string {
	return fmt.Sprintf("%s/headshot_%s.%s", l.HeadshotPrefix, l.pad(caseID), ext)
}

// Profile returns the profile document key for caseID.
func (l Layout) Profile(caseID int) string {
	return fmt.Sprintf("%s/profile_%s.json", l.ProfilePrefix, l.pad(caseID))
}

// Description returns the description text key for caseID.
func (l Layout) Description(caseID int) string {
	return fmt.Sprintf("%s/description_%s.txt", l.DescriptionPrefix, l.pad(caseID))
}

// Bundle returns the bundle key covering first..last, with an optional
// extra suffix such as ".zst".
func (l Layout) Bundle(first, last int, suffix string) string {
	return fmt.Sprintf("%s/instructions_%s_%s.json%s", l.InstructionPrefix, l.pad(first), l.pad(last), suffix)
}
