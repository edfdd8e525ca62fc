package generate

import (
	"fmt"

	"github.com/foxzi/outreach/internal/config"
	"github.com/foxzi/outreach/internal/profile"
)

const systemPrompt = "You write natural, personal emails that sound human and authentic, not corporate or promotional."

// buildPrompt renders the invitation prompt for one recipient. The stylistic
// constraints (word range, no subject line, no signature, no placeholders) are
// best-effort instructions to the model, not validated on the response.
func buildPrompt(event config.EventConfig, p profile.Profile) string {
	return fmt.Sprintf(`You are writing a personal invitation email to a professional contact.

Event: %s on %s in %s

Recipient:
- Name: %s
- Role: %s at %s
- Industry: %s
- Professional goal: %s
- Interests: %s

Write a warm, personal email (140-180 words) that:
1. Opens with a personalized greeting that references their specific role, company, or interests
2. Explains why THIS specific event would be valuable for THEM based on their goals and interests
3. Mentions 1-2 specific aspects of the event that align with their professional interests
4. Includes a clear but natural call-to-action about registering
5. Ends with a friendly, conversational closing (NOT "Best regards", "Sincerely", or formal signatures)
6. Sounds like it was written by a human colleague or friend, not a marketing department

Do NOT include:
- Subject line
- Formal signatures like "Best regards" or "Sincerely"
- [Placeholders] or brackets
- Generic corporate marketing language
- Heavy sales pitch or promotional tone
- Your name at the end

Write as if you're a real person genuinely inviting someone you know professionally.`,
		event.Name, event.Date, event.Location,
		p.FullName,
		p.JobTitle, p.Company,
		p.Industry,
		p.Goal,
		p.Interests,
	)
}
