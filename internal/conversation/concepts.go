package conversation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxConceptsPerReply bounds how many concepts one reply contributes.
const MaxConceptsPerReply = 8

var conceptLexicon = []struct {
	canonical string
	variants  []string
}{
	{"sleep routine", []string{"ตารางการนอน", "เข้านอนเป็นเวลา", "เวลานอน", "sleep schedule", "sleep routine", "regular bedtime"}},
	{"limit caffeine", []string{"คาเฟอีน", "กาแฟ", "caffeine"}},
	{"hydration", []string{"ดื่มน้ำ", "hydrat", "drink water", "fluids"}},
	{"night lighting", []string{"ไฟกลางคืน", "ไฟส่องทาง", "เปิดไฟ", "night light"}},
	{"grab bars", []string{"ราวจับ", "grab bar", "handrail"}},
	{"non-slip flooring", []string{"กันลื่น", "non-slip", "slip-resistant"}},
	{"gentle exercise", []string{"ออกกำลังกาย", "เดินเบา", "ยืดเหยียด", "exercise", "stretching", "gentle walk"}},
	{"balanced diet", []string{"อาหารครบ", "อาหารครบห้าหมู่", "balanced diet", "balanced meals"}},
	{"blood sugar monitoring", []string{"วัดน้ำตาล", "ตรวจน้ำตาล", "monitor blood sugar", "check blood sugar"}},
	{"medication schedule", []string{"จัดยา", "กล่องยา", "ตารางยา", "pill organizer", "medication schedule"}},
	{"wound care", []string{"ทำแผล", "ดูแลแผล", "wound care", "dressing change"}},
	{"consult a doctor", []string{"ปรึกษาแพทย์", "พบแพทย์", "ปรึกษาคุณหมอ", "consult a doctor", "see a doctor", "talk to a doctor"}},
	{"caregiver rest", []string{"ดูแลตัวเอง", "พักผ่อนบ้าง", "take a break", "self-care", "respite"}},
	{"memory aids", []string{"ปฏิทิน", "โน้ตเตือน", "calendar", "reminder note"}},
	{"social activity", []string{"พูดคุย", "ทำกิจกรรม", "social activit", "companionship"}},
}

var bulletRe = regexp.MustCompile(`(?m)^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)

// ExtractConcepts returns up to MaxConceptsPerReply canonical phrases found
// in an assistant reply.
func ExtractConcepts(reply string) []string {
	lower := strings.ToLower(reply)
	seen := make(map[string]bool)
	var out []string
	add := func(c string) {
		if c != "" && !seen[c] && len(out) < MaxConceptsPerReply {
			seen[c] = true
			out = append(out, c)
		}
	}

	for _, entry := range conceptLexicon {
		for _, v := range entry.variants {
			if strings.Contains(lower, v) {
				add(entry.canonical)
				break
			}
		}
	}
	for _, m := range bulletRe.FindAllStringSubmatch(reply, -1) {
		add(bulletHead(m[1]))
	}
	return out
}

// bulletHead normalizes the lead phrase of a list item.
func bulletHead(item string) string {
	item = strings.ReplaceAll(item, "**", "")
	if i := strings.IndexAny(item, ":："); i >= 0 {
		item = item[:i]
	}
	item = strings.ToLower(strings.TrimSpace(item))
	if r := []rune(item); len(r) > 40 {
		item = string(r[:40])
	}
	item = strings.TrimRight(item, " .,;!?")
	if utf8.RuneCountInString(item) < 3 {
		return ""
	}
	return item
}
