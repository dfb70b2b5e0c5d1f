package advisor

import "github.com/opensource-regtech/kestrel/internal/domain"

// DefaultNotes returns the built-in advisory notes.
func DefaultNotes() []Note {
	return []Note{
		{
			ID:         "large-venue",
			Priority:   domain.PriorityMedium,
			Expression: `floorArea > 200.0 || seatingCapacity > 50`,
			Message:    "עסק בהיקף גדול: צפו לתהליך אישור מורכב יותר ולביקורות נוספות מצד הרשויות",
		},
		{
			ID:         "alcohol-licensing",
			Priority:   domain.PriorityHigh,
			Expression: `flags.alcoholService`,
			Message:    "הגשת אלכוהול מחייבת אישור משטרה, שעלול לעכב את קבלת הרישיון. הגישו את הבקשה מוקדם",
		},
		{
			ID:         "fire-safety",
			Priority:   domain.PriorityHigh,
			Expression: `flags.gasUsage && floorArea > 100.0`,
			Message:    "שימוש בגז בשטח של מעל 100 מ\"ר: מומלץ להיעזר ביועץ בטיחות אש כבר בשלב התכנון",
		},
		{
			ID:         "late-night",
			Priority:   domain.PriorityMedium,
			Expression: `flags.lateNightOperation || flags.twentyFourSeven`,
			Message:    "פעילות בשעות הלילה דורשת תיאום עם המשטרה ועם הרשות המקומית",
		},
		{
			ID:         "live-music",
			Priority:   domain.PriorityMedium,
			Expression: `flags.liveMusic`,
			Message:    "מוזיקה חיה מחייבת עמידה בתקנות הרעש. שקלו בידוד אקוסטי לפני הפתיחה",
		},
		{
			ID:         "meat-handling",
			Priority:   domain.PriorityMedium,
			Expression: `flags.meatHandling`,
			Message:    "טיפול בבשר מחייב שרשרת קירור מתועדת ומקררים ייעודיים",
		},
		{
			ID:         "delivery",
			Priority:   domain.PriorityLow,
			Expression: `flags.deliveryService || businessType == "delivery_only"`,
			Message:    "משלוחים מחייבים רכב מתאים להובלת מזון ואריזות העומדות בתקן",
		},
		{
			ID:         "outdoor-seating",
			Priority:   domain.PriorityLow,
			Expression: `flags.outdoorSeating`,
			Message:    "הושבה מחוץ לעסק מחייבת היתר עירוני לשימוש במדרכה",
		},
	}
}
