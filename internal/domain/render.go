package domain

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
)

// RenderPost renders the channel post body for a contest: the original text
// followed by the participant block and the deadline line
func RenderPost(c *Contest) string {
	var sb strings.Builder
	sb.WriteString(c.Text)

	participants := c.ParticipantList()
	sb.WriteString(fmt.Sprintf("\n\n👥 Участники (%d):\n", len(participants)))
	if len(participants) == 0 {
		sb.WriteString("Пока нет участников")
	} else {
		lines := make([]string, 0, len(participants))
		for _, p := range participants {
			lines = append(lines, fmt.Sprintf("• %s", p.Name()))
		}
		sb.WriteString(strings.Join(lines, "\n"))
	}

	if c.Deadline != "" {
		sb.WriteString(fmt.Sprintf("\n\nДедлайн: %s", c.Deadline))
	} else {
		sb.WriteString("\n\nДедлайн не установлен")
	}

	if c.EarlyStart {
		sb.WriteString(fmt.Sprintf("\n🚀 Конкурс стартовал: %s", c.StartedAt.Format("02.01.2006 15:04")))
	}

	return sb.String()
}

// FormatParticipant renders one participant entry for a registrations report
func FormatParticipant(p *Participant, position int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("👤 %d. %s (%d)\n", position, p.Name(), p.ID))

	if len(p.Answers) > 0 {
		sb.WriteString("Информация:\n")
		for _, key := range answerKeys(p) {
			sb.WriteString(fmt.Sprintf("  - %s: %s\n", key, p.Answers[key]))
		}
	}

	sb.WriteString(fmt.Sprintf("📅 %s\n", p.RegisteredAt.Format("02.01.2006 15:04:05")))
	return sb.String()
}

// RegistrationsPageSize is the number of participants per report message
const RegistrationsPageSize = 10

// RenderRegistrationsPage renders one page of a contest's registration report.
// Pages are zero-based; total is the page count for the given contest.
func RenderRegistrationsPage(c *Contest, page int) (body string, total int) {
	participants := c.ParticipantList()
	total = (len(participants) + RegistrationsPageSize - 1) / RegistrationsPageSize
	if page < 0 || page >= total {
		return "", total
	}

	start := page * RegistrationsPageSize
	end := start + RegistrationsPageSize
	if end > len(participants) {
		end = len(participants)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📝 Регистрации для конкурса %s (%d/%d):\n\n", c.ID, page+1, total))
	for i := start; i < end; i++ {
		sb.WriteString(FormatParticipant(participants[i], i+1))
		sb.WriteString("\n")
	}
	return sb.String(), total
}

// ExportText renders the full registration list as a plain-text document
func ExportText(c *Contest) []byte {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Регистрации для конкурса %s\n\n", c.ID))
	for i, p := range c.ParticipantList() {
		sb.WriteString(FormatParticipant(p, i+1))
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}

// ExportCSV renders the registration list as CSV: id, display name,
// registration time, then one column per registration field in form order
func ExportCSV(c *Contest) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"id", "name", "registered_at"}
	for _, f := range c.RegistrationFields {
		header = append(header, f.Name)
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, p := range c.ParticipantList() {
		record := []string{
			fmt.Sprintf("%d", p.ID),
			p.Name(),
			p.RegisteredAt.Format("02.01.2006 15:04:05"),
		}
		for _, f := range c.RegistrationFields {
			record = append(record, p.Answers[f.Name])
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// answerKeys returns the participant's answer keys sorted for deterministic output
func answerKeys(p *Participant) []string {
	keys := make([]string, 0, len(p.Answers))
	for k := range p.Answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
