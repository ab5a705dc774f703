package session

// Persona is a fixed preset bundling age group, gender and interests,
// offered as a shortcut alternative to manual target selection.
type Persona struct {
	ID         string
	Name       string
	Age        string
	Gender     string
	Interests  string
	Categories string
}

// Ref returns the stored reference form of the persona.
func (p Persona) Ref() *PersonaRef {
	return &PersonaRef{ID: p.ID, Name: p.Name}
}

// Apply pre-fills a target from the persona while keeping the reference.
func (p Persona) Apply() Target {
	return Target{
		AgeGroups: []string{p.Age},
		Genders:   []string{p.Gender},
		Interests: p.Interests,
		Persona:   p.Ref(),
	}
}

// AgeGroups is the fixed age bracket list of the target step.
var AgeGroups = []string{"10대", "20대", "30대", "40대", "50대", "60대", "70대 이상"}

// Genders is the fixed gender list of the target step.
var Genders = []string{"남성", "여성"}

// Categories is the fixed product category list of the product step.
var Categories = []string{
	"뷰티/화장품",
	"게임",
	"패션/잡화",
	"부동산/재테크",
	"여행/숙박/항공",
	"스포츠/레저",
	"식음료/요리",
	"정치/사회",
}

// Personas are the eight presets of the target step.
var Personas = []Persona{
	{ID: "p1", Name: "뷰티/화장품", Age: "20대", Gender: "여성", Interests: "생활, 노하우, 쇼핑", Categories: "뷰티, 화장품, 스킨케어"},
	{ID: "p2", Name: "게임", Age: "20대", Gender: "남성", Interests: "취미, 여가, 여행", Categories: "게임, 전자제품, 엔터테인먼트"},
	{ID: "p3", Name: "패션/잡화", Age: "30대", Gender: "여성", Interests: "생활, 노하우, 쇼핑", Categories: "패션, 액세서리, 라이프스타일"},
	{ID: "p4", Name: "부동산/재테크", Age: "30대", Gender: "남성", Interests: "지식, 동향", Categories: "부동산, 투자, 금융"},
	{ID: "p5", Name: "여행/숙박/항공", Age: "40대", Gender: "여성", Interests: "취미, 여가, 여행", Categories: "여행, 숙박, 항공"},
	{ID: "p6", Name: "스포츠/레저", Age: "40대", Gender: "남성", Interests: "취미, 여가, 여행", Categories: "스포츠, 아웃도어, 레저"},
	{ID: "p7", Name: "식음료/요리", Age: "50대", Gender: "여성", Interests: "생활, 노하우, 쇼핑", Categories: "식음료, 요리"},
	{ID: "p8", Name: "정치/사회", Age: "50대", Gender: "남성", Interests: "지식, 동향", Categories: "정치, 사회이슈, 뉴스"},
}

// PersonaByID looks up a preset by its id.
func PersonaByID(id string) (Persona, bool) {
	for _, p := range Personas {
		if p.ID == id {
			return p, true
		}
	}
	return Persona{}, false
}
