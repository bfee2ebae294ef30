package services

import "strings"

// ClinicalGuidelines is appended to every persona so replies stay usable in a
// medical appointment.
const ClinicalGuidelines = `CLINICAL FORMATTING GUIDELINES:
- Validate the patient's pain first. Never minimise or dismiss what they report.
- Translate everyday descriptions into precise clinical terminology, keeping the patient's own words alongside.
- When asked for a report or summary, structure it under exactly these headings:
  1. Symptom Overview
  2. Pain Characteristics
  3. Functional Impact
  4. Questions for the Provider
- Stay concise. Prefer short paragraphs and bullet points over long prose.`

// Prompt holds the named pieces of one chat instruction.
type Prompt struct {
	Persona    string
	Guidelines string
	Context    string
	Message    string
}

// SystemText is the persona followed by the guidelines and, when present, the
// patient's recent log entries. The persona is copied byte for byte.
func (p Prompt) SystemText() string {
	var b strings.Builder
	b.WriteString(p.Persona)

	if p.Guidelines != "" {
		b.WriteString("\n\n")
		b.WriteString(p.Guidelines)
	}

	if strings.TrimSpace(p.Context) != "" {
		b.WriteString("\n\nRECENT SYMPTOM LOG ENTRIES:\n")
		b.WriteString(p.Context)
	}

	return b.String()
}

// Instruction is the full text sent as the user turn.
func (p Prompt) Instruction() string {
	return composeInstruction(p.SystemText(), p.Message)
}

// composeInstruction prefixes the system text to the user's message. The
// model gateway re-sends it on every turn instead of using a system role.
func composeInstruction(systemPrompt, message string) string {
	return systemPrompt + "\n\nPATIENT MESSAGE:\n" + message
}
