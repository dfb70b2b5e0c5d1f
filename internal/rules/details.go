package rules

import (
	"fmt"

	"github.com/opensource-regtech/kestrel/internal/domain"
)

const maxRelated = 3

var authorityTips = map[string][]string{
	"עירייה - מחלקת רישוי עסקים": {
		"הגישו את הבקשה דרך אתר הרשות המקומית וצרפו תשריט של העסק",
		"בדקו מראש שהשימוש המבוקש תואם את ייעוד הנכס",
		"שמרו עותק של כל אישור שהתקבל מגורמי הרישוי האחרים",
	},
	"עירייה - מחלקת הנדסה": {
		"ודאו שקיים היתר בנייה בתוקף לנכס",
		"שינויים במבנה מחייבים תיאום מוקדם עם מחלקת ההנדסה",
	},
	"משטרת ישראל": {
		"תאמו פגישה עם קצין הרישוי בתחנה האזורית",
		"הכינו תכנית אבטחה ושעות פעילות מפורטות",
		"זמן הטיפול עשוי להתארך בתקופות חגים",
	},
	"משרד הבריאות": {
		"הכינו את המטבח לביקורת מפקח לפני הגשת הבקשה",
		"שמרו תיעוד של בדיקות מים והדברה",
		"ודאו שלכל העובדים יש תעודת הכשרה בתוקף",
	},
	"כבאות והצלה": {
		"הזמינו יועץ בטיחות אש מוסמך להכנת תכנית הבטיחות",
		"בדקו את תקינות המטפים ותאורת החירום לפני הביקורת",
		"ודאו שיציאות החירום פנויות ומסומנות",
	},
	"המשרד להגנת הסביבה": {
		"בצעו מדידת רעש על ידי יועץ אקוסטי מוסמך",
		"הגבילו פעילות רועשת לשעות המותרות",
	},
}

var genericTips = []string{
	"פנו לגורם המאשר מוקדם ככל האפשר כדי לברר את רשימת המסמכים הנדרשים",
	"שמרו העתקים של כל הטפסים והאישורים שהוגשו",
	"עקבו אחר סטטוס הבקשה באופן קבוע",
}

// GetRequirementDetails returns the record with the given id together with
// up to three related requirements from the same authority and processing
// tips for that authority. It fails with domain.ErrNotFound when the id is
// not in the catalog.
func (e *Engine) GetRequirementDetails(id string) (*domain.DetailedRequirement, error) {
	rec, ok := e.catalog.Requirement(id)
	if !ok {
		return nil, fmt.Errorf("%w: requirement %s", domain.ErrNotFound, id)
	}

	related := make([]domain.RequirementRecord, 0, maxRelated)
	for _, other := range e.catalog.Requirements() {
		if len(related) == maxRelated {
			break
		}
		if other.ID != rec.ID && other.Authority == rec.Authority {
			related = append(related, other.Clone())
		}
	}

	return &domain.DetailedRequirement{
		RequirementRecord:   rec.Clone(),
		RelatedRequirements: related,
		ProcessingTips:      TipsFor(rec.Authority),
	}, nil
}

// TipsFor returns the processing tips for an authority, falling back to the
// generic list for authorities without specific guidance.
func TipsFor(authority string) []string {
	tips, ok := authorityTips[authority]
	if !ok {
		tips = genericTips
	}
	return append([]string(nil), tips...)
}
