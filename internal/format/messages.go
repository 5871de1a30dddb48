package format

import "github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"

const (
	emergencyDisclaimerTH = "⚠️ หากเป็นเหตุฉุกเฉิน โปรดโทร 1669 (สายด่วนการแพทย์ฉุกเฉิน) ทันที"
	emergencyDisclaimerEN = "⚠️ If this is an emergency, call 1669 (Thai emergency medical services) now."

	handoffDisclaimerTH = "💬 เรื่องนี้อาจต้องการผู้เชี่ยวชาญช่วยดูแลเพิ่มเติม สามารถพูดคุยกับทีมผู้เชี่ยวชาญของเราได้ค่ะ"
	handoffDisclaimerEN = "💬 This may need a specialist's help. You can talk with our human care team."

	medicalDisclaimerTH = "ℹ️ ข้อมูลนี้เป็นคำแนะนำทั่วไป ไม่ใช่การวินิจฉัยทางการแพทย์ โปรดปรึกษาแพทย์หรือเภสัชกร"
	medicalDisclaimerEN = "ℹ️ This is general guidance, not a medical diagnosis. Please consult a doctor or pharmacist."

	analyticalDisclaimerTH = "ℹ️ การวิเคราะห์นี้อ้างอิงจากข้อมูลทั่วไป ควรใช้ประกอบการตัดสินใจร่วมกับผู้เชี่ยวชาญ"
	analyticalDisclaimerEN = "ℹ️ This analysis is based on general information. Use it alongside professional advice."

	modeSuggestionTH = "🔎 ต้องการข้อมูลเชิงลึกแบบเป็นขั้นตอน ลองเปลี่ยนเป็นโหมดวิเคราะห์ได้ค่ะ"
	modeSuggestionEN = "🔎 For a structured, step-by-step breakdown, try switching to analysis mode."
)

// EmergencyMessage is the fixed reply for a message flagged as an
// emergency. It never depends on the provider.
func EmergencyMessage(lang domain.Language) string {
	switch lang {
	case domain.LanguageThai:
		return "ดูเหมือนว่าอาจเป็นเหตุฉุกเฉินค่ะ\n\n" +
			"ตรวจดูการหายใจและความรู้สึกตัวของผู้ป่วย อย่าเคลื่อนย้ายหากสงสัยว่าบาดเจ็บที่ศีรษะหรือกระดูกสันหลัง " +
			"และอยู่กับผู้ป่วยจนกว่าความช่วยเหลือจะมาถึง\n\n" + emergencyDisclaimerTH
	case domain.LanguageEnglish:
		return "This sounds like it could be an emergency.\n\n" +
			"Check their breathing and responsiveness. Do not move them if you suspect a head or spine injury, " +
			"and stay with them until help arrives.\n\n" + emergencyDisclaimerEN
	default:
		panic("format: unknown language " + string(lang))
	}
}

// Apology is the only text a user sees when a turn fails.
func Apology(lang domain.Language) string {
	switch lang {
	case domain.LanguageThai:
		return "ขออภัยค่ะ ตอนนี้ระบบขัดข้องชั่วคราว กรุณาลองใหม่อีกครั้งในอีกสักครู่นะคะ"
	case domain.LanguageEnglish:
		return "Sorry, something went wrong on our side. Please try again in a moment."
	default:
		panic("format: unknown language " + string(lang))
	}
}

// Rejected explains why a message was not processed.
func Rejected(lang domain.Language, r domain.Rejection) string {
	tooLong := r == domain.RejectTooLong
	switch lang {
	case domain.LanguageThai:
		if tooLong {
			return "ข้อความยาวเกินไปค่ะ กรุณาแบ่งเป็นข้อความสั้น ๆ แล้วส่งใหม่นะคะ"
		}
		return "ยังไม่ได้รับข้อความค่ะ พิมพ์สิ่งที่อยากปรึกษาได้เลยนะคะ"
	case domain.LanguageEnglish:
		if tooLong {
			return "That message is too long. Please split it into shorter messages."
		}
		return "I didn't receive any text. Tell me what you'd like help with."
	default:
		panic("format: unknown language " + string(lang))
	}
}
