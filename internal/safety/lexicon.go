package safety

import "github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"

// TopicRule maps keywords to a topic. Rules are tried in order.
type TopicRule struct {
	Topic    domain.Topic
	Keywords []string
}

// Lexicon is the keyword data driving classification.
type Lexicon struct {
	Emergency []string
	Complex   []string
	Medical   []string
	Topics    []TopicRule
}

// DefaultLexicon returns the built-in Thai and English lexicon.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Emergency: []string{
			"หมดสติ", "ไม่รู้สึกตัว", "ไม่ตอบสนอง", "หายใจไม่ออก", "หายใจไม่ได้",
			"ไม่หายใจ", "หายใจลำบากมาก", "เจ็บหน้าอก", "แน่นหน้าอก", "ชักเกร็ง",
			"กำลังชัก", "เลือดออกมาก", "เลือดไหลไม่หยุด", "ปากเบี้ยว",
			"แขนขาอ่อนแรงครึ่งซีก", "หัวฟาด", "หัวใจหยุดเต้น", "ฆ่าตัวตาย",
			"อยากตาย", "กินยาเกินขนาด", "สำลักติดคอ",
			"unconscious", "unresponsive", "not breathing", "can't breathe",
			"cannot breathe", "chest pain", "seizure", "stroke", "heavy bleeding",
			"bleeding heavily", "heart attack", "overdose", "suicide",
			"kill myself", "choking", "hit her head", "hit his head",
		},
		Complex: []string{
			"มรดก", "พินัยกรรม", "แบ่งทรัพย์สิน", "ครอบครัวขัดแย้ง", "ทะเลาะกัน",
			"ยาหลายตัว", "ยาหลายชนิด", "ยาหลายอย่าง", "ยาตีกัน",
			"ปฏิกิริยาระหว่างยา", "หลายโรค",
			"inheritance", "power of attorney", "legal guardian", "family conflict",
			"siblings disagree", "multiple medications", "several medications",
			"drug interaction", "polypharmacy", "several conditions",
		},
		Medical: []string{
			"กินยา", "ทานยา", "ใช้ยา", "ลืมยา", "ยาลด", "ยาความดัน", "ยาเบาหวาน",
			"ยานอนหลับ", "หมอ", "แพทย์", "โรงพยาบาล", "อาการ", "ความดัน",
			"เบาหวาน", "ปวด", "เป็นไข้", "ผ่าตัด", "อินซูลิน",
			"medication", "medicine", "doctor", "hospital", "symptom",
			"blood pressure", "diabetes", "pain", "fever", "surgery", "insulin",
			"dose",
		},
		Topics: []TopicRule{
			{domain.TopicSleep, []string{
				"นอนไม่หลับ", "นอนหลับ", "หลับ", "การนอน", "ง่วง",
				"insomnia", "sleep", "nap",
			}},
			{domain.TopicFalls, []string{
				"หกล้ม", "ล้ม", "ลื่น", "ทรงตัว",
				"fall", "fell", "slipped", "balance",
			}},
			{domain.TopicDiet, []string{
				"อาหาร", "โภชนาการ", "กินข้าว", "ทานข้าว", "เมนู", "ดื่มน้ำ",
				"diet", "food", "meal", "nutrition", "eating",
			}},
			{domain.TopicNightCare, []string{
				"กลางคืน", "กลางดึก", "ตอนดึก",
				"night", "overnight",
			}},
			{domain.TopicPostOperative, []string{
				"หลังผ่าตัด", "แผลผ่าตัด", "ผ่าตัด",
				"post-op", "postoperative", "surgery", "operation",
			}},
			{domain.TopicDiabetes, []string{
				"เบาหวาน", "น้ำตาลในเลือด", "อินซูลิน",
				"diabetes", "diabetic", "blood sugar", "insulin", "glucose",
			}},
			{domain.TopicMood, []string{
				"ซึมเศร้า", "เศร้า", "เหงา", "เครียด", "หงุดหงิด", "กังวล", "ท้อ",
				"depress", "sad", "lonely", "anxious", "anxiety", "stress", "mood",
			}},
			{domain.TopicMemory, []string{
				"ความจำ", "หลงลืม", "ขี้ลืม", "สมองเสื่อม", "อัลไซเมอร์", "จำไม่ได้",
				"dementia", "alzheimer", "memory", "forgetful", "forgets",
			}},
			{domain.TopicMedication, []string{
				"ยาหลายตัว", "ยาหลายชนิด", "ยาหลายอย่าง", "ยาตีกัน", "จัดยา", "ตารางยา",
				"multiple medications", "several medications", "drug interaction",
				"polypharmacy", "medication schedule",
			}},
			{domain.TopicFamily, []string{
				"มรดก", "พินัยกรรม", "แบ่งทรัพย์สิน", "ครอบครัวขัดแย้ง", "พี่น้องทะเลาะ",
				"inheritance", "family conflict", "siblings", "power of attorney",
			}},
		},
	}
}
