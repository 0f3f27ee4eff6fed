// Package assets provides embedded static assets for the application.
//
// Prompt templates are stored as text files under prompts/ and embedded at
// compile time, then rendered with text/template.
package assets

import (
	"bytes"
	_ "embed"
	"text/template"
)

//go:embed prompts/profile.txt
var profileTemplate string

//go:embed prompts/composition.txt
var compositionTemplate string

//go:embed prompts/origin.txt
var originTemplate string

//go:embed prompts/main-instruction.txt
var mainInstructionTemplate string

//go:embed prompts/cue-plan.txt
var cuePlanTemplate string

//go:embed prompts/cue-compose.txt
var cueComposeTemplate string

//go:embed prompts/cue-repair.txt
var cueRepairTemplate string

//go:embed prompts/description.txt
var descriptionTemplate string

var (
	profileTmpl         = template.Must(template.New("profile").Parse(profileTemplate))
	compositionTmpl     = template.Must(template.New("composition").Parse(compositionTemplate))
	originTmpl          = template.Must(template.New("origin").Parse(originTemplate))
	mainInstructionTmpl = template.Must(template.New("main-instruction").Parse(mainInstructionTemplate))
	cuePlanTmpl         = template.Must(template.New("cue-plan").Parse(cuePlanTemplate))
	cueComposeTmpl      = template.Must(template.New("cue-compose").Parse(cueComposeTemplate))
	cueRepairTmpl       = template.Must(template.New("cue-repair").Parse(cueRepairTemplate))
	descriptionTmpl     = template.Must(template.New("description").Parse(descriptionTemplate))
)

// ProfileData fills the profile extraction prompt.
type ProfileData struct {
	// CaseID is printed as a non-semantic anchor so re-runs of the same case
	// see the same prompt.
	CaseID   int
	CaseText string
	Sentinel string
	Keys     []string
}

// CueItem is one planned cue as shown to the composer.
type CueItem struct {
	Domain    string
	Trigger   string
	Utterance string
}

// CueComposeData fills the cue composition prompt.
type CueComposeData struct {
	Items     []CueItem
	MaxCues   int
	MaxLength int
}

// CueRepairData fills the cue repair prompt.
type CueRepairData struct {
	Cues      []string
	Problems  []string
	MaxCues   int
	MaxLength int
}

type caseData struct {
	CaseText        string
	MainInstruction string
}

func RenderProfilePrompt(d ProfileData) string {
	return renderTemplate(profileTmpl, d)
}

func RenderCompositionPrompt(caseText string) string {
	return renderTemplate(compositionTmpl, caseData{CaseText: caseText})
}

func RenderOriginPrompt(caseText string) string {
	return renderTemplate(originTmpl, caseData{CaseText: caseText})
}

func RenderMainInstructionPrompt(caseText string) string {
	return renderTemplate(mainInstructionTmpl, caseData{CaseText: caseText})
}

func RenderCuePlanPrompt(caseText, mainInstruction string) string {
	return renderTemplate(cuePlanTmpl, caseData{CaseText: caseText, MainInstruction: mainInstruction})
}

func RenderCueComposePrompt(d CueComposeData) string {
	return renderTemplate(cueComposeTmpl, d)
}

func RenderCueRepairPrompt(d CueRepairData) string {
	return renderTemplate(cueRepairTmpl, d)
}

// RenderDescriptionPrompt asks for a short non-clinical description of the patient.
func RenderDescriptionPrompt(caseText string) string {
	return renderTemplate(descriptionTmpl, caseData{CaseText: caseText})
}

func renderTemplate(tmpl *template.Template, data any) string {
	var buf bytes.Buffer
	// Template execution errors are not expected with our simple templates,
	// but we handle them gracefully by returning whatever was rendered.
	_ = tmpl.Execute(&buf, data)
	return buf.String()
}
