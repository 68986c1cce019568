package chat

import (
	"fmt"
	"strings"

	"github.com/trezcool/maktab/core/catalog"
)

// Temperature is the sampling temperature every turn is generated with.
const Temperature float32 = 0.7

type (
	// Part is one piece of the content sent to the model.
	Part interface {
		isPart()
	}

	Text string

	// InlineData is binary content sent with the request, base64 encoded.
	InlineData struct {
		MIMEType string
		Data     string
	}

	// FileRef points to a file previously uploaded to the provider's file storage.
	FileRef struct {
		MIMEType string
		URI      string
	}

	Prompt struct {
		SystemInstruction string
		Parts             []Part
		Temperature       float32
	}
)

func (Text) isPart()       {}
func (InlineData) isPart() {}
func (FileRef) isPart()    {}

const pdfMIMEType = "application/pdf"

const instructionTmpl = `You are Maktab AI, an expert educational assistant.
CRITICAL RULES:
1. DO NOT open with greetings or salutations of any kind.
2. DO NOT introduce yourself or your purpose.
3. DO NOT use repetitive filler phrases such as offers of further help.
4. Provide ONLY the direct, concise answer to the request.
5. TARGET AUDIENCE: This content is for a %s of %s.
6. COMPLEXITY LEVEL: Adjust your explanation style specifically for %s.
7. LANGUAGE: Respond strictly in %s.
8. MATH: Use LaTeX for all mathematical expressions, delimited by $...$, e.g. $x^2$.`

// SystemInstruction renders the instruction for sess, without grounding notes.
func SystemInstruction(sess Session) string {
	role := RoleStudent
	if sess.Role == RoleTeacher {
		role = RoleTeacher
	}
	grade := sess.GradeName
	if grade == "" {
		grade = T(sess.Language, MsgGrade)
	}
	lang, ok := languageNames[sess.Language]
	if !ok {
		lang = languageNames[LangTajik]
	}
	return fmt.Sprintf(instructionTmpl, role, grade, grade, lang)
}

// UserText is the final text part: the message, else the action's label.
func UserText(sess Session, message string, action Action) string {
	if msg := strings.TrimSpace(message); msg != "" {
		return msg
	}
	return action.Label(sess.Language)
}

// Assemble builds the model input for one chat turn.
// Images take precedence over a textbook; text content is always included when present.
func Assemble(sess Session, grounding Grounding, message string, action Action) Prompt {
	var b strings.Builder
	b.WriteString(SystemInstruction(sess))

	if grounding.HasText() {
		b.WriteString("\n\n[TEXT CONTEXT]: ")
		b.WriteString(*grounding.Content)
	}

	parts := make([]Part, 0, len(grounding.Images)+2)
	switch {
	case grounding.HasImages():
		images := catalog.SortImages(grounding.Images)
		fmt.Fprintf(&b, "\n\n[IMAGE CONTEXT]: %d sequential textbook images provided, in reading order.", len(images))
		for _, img := range images {
			parts = append(parts, InlineData{MIMEType: img.MIMEType, Data: img.Data})
		}
	case grounding.HasPDF():
		b.WriteString("\n\n[TEXTBOOK]: The attached textbook is the authoritative source; base your answer on it.")
		parts = append(parts, FileRef{MIMEType: pdfMIMEType, URI: *grounding.PDFURI})
	}

	parts = append(parts, Text(UserText(sess, message, action)))
	return Prompt{
		SystemInstruction: b.String(),
		Parts:             parts,
		Temperature:       Temperature,
	}
}
