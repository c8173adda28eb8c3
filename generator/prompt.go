// ABOUTME: Prompt rendering for outreach generation
// ABOUTME: Builds the company system prompt and the per-client user prompt
package generator

import (
	"bytes"
	"strings"
	"text/template"
)

var systemTemplate = template.Must(template.New("system").Parse(`You are a professional account manager writing on behalf of {{.}}.
Your job is to keep relationships with {{.}} clients warm through short, genuine emails.

Email Writing Rules
You MUST respond with a JSON object containing two keys: "subject" and "body".
The "subject" should be a short, personalized, and engaging email subject line (under 10 words).
The "body" is the email content.
Do not include any other text, reasoning, or markdown formatting outside of the JSON object.
Keep emails concise: 150-250 words.
Maintain a conversational, warm, and genuine tone.
Highlight one specific value relevant to the recipient's business.
End with a soft, actionable closing.
Sign as "Your partners at {{.}}."
Never include internal thoughts, reasoning, or meta-commentary.

Writing Style Guidelines
Address the recipient by first name.
Focus on building relationships, not just making a sale.
Keep paragraphs short (2-3 sentences each).
Do not invent facts, case studies, or results you were not given.`))

// SystemPrompt renders the system prompt for a company.
func SystemPrompt(companyName string) string {
	var buf bytes.Buffer
	// The template only interpolates a string, so Execute cannot fail.
	_ = systemTemplate.Execute(&buf, companyName)
	return buf.String()
}

// UserPrompt renders the per-client prompt for a request.
func UserPrompt(req Request) string {
	linkedIn := req.Client.LinkedIn
	if linkedIn == "" {
		linkedIn = "Not available"
	}

	var b strings.Builder
	b.WriteString("Company Name: " + req.Company.CompanyName + "\n")
	b.WriteString("Client Name: " + req.Client.Name + "\n")
	b.WriteString("Client LinkedIn: " + linkedIn + "\n")
	b.WriteString("Client Email: " + req.Client.Email + "\n")
	b.WriteString("My Goal: \"" + req.Action.Step.Intent + "\"\n")
	b.WriteString("Context: " + req.Action.Reason)
	return b.String()
}
