package medialib

import "fmt"

// Rule-based description synthesis for records created without one. Keeps
// the catalog searchable; not a substitute for an authored description.

type kindWording struct {
	en string
	ar string
}

var kindWordings = map[ContentKind]kindWording{
	KindPDF:          {"PDF document", "ملف PDF"},
	KindImage:        {"image", "صورة"},
	KindVideo:        {"video", "مقطع فيديو"},
	KindPresentation: {"presentation", "عرض تقديمي"},
}

// GenerateDescriptions builds an English and an Arabic description from the
// item's title, kind and category names.
func GenerateDescriptions(title, titleAlt string, kind ContentKind, categoryName, categoryNameAlt string) (en, alt string) {
	wording, ok := kindWordings[kind]
	if !ok {
		wording = kindWording{"file", "ملف"}
	}
	if titleAlt == "" {
		titleAlt = title
	}
	if categoryName == "" {
		categoryName = "General"
	}
	if categoryNameAlt == "" {
		categoryNameAlt = "عام"
	}

	en = fmt.Sprintf("This %s, titled %q, is part of the %s collection.", wording.en, title, categoryName)
	switch kind {
	case KindImage:
		en += fmt.Sprintf(" It provides a visual representation related to %s.", title)
	case KindPDF:
		en += fmt.Sprintf(" It contains detailed information and resources regarding %s.", title)
	}

	alt = fmt.Sprintf("هذا %s بعنوان \"%s\" ويندرج تحت قسم %s.", wording.ar, titleAlt, categoryNameAlt)
	switch kind {
	case KindImage:
		alt += fmt.Sprintf(" توفر هذه الصورة تجسيداً بصرياً متعلقاً بموضوع %s.", titleAlt)
	case KindPDF:
		alt += fmt.Sprintf(" يحتوي هذا الملف على معلومات وموارد تفصيلية حول %s.", titleAlt)
	case KindVideo:
		alt += fmt.Sprintf(" يقدم هذا الفيديو شرحاً أو عرضاً حول %s.", titleAlt)
	}

	return en, alt
}
