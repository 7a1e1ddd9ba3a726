package model

type Player struct {
	GameID     string `json:"game_id" validate:"required"`
	DisplayID  int    `json:"display_id"`
	Class      string `json:"class" validate:"required"`
	IsSelected bool   `json:"is_selected"`
}

// GameClasses is the fixed class roster. A player's class is always one
// of these.
var GameClasses = []string{
	"dali", "emei", "gaibang", "mingjiao", "tianshan", "wuchen",
	"wudang", "xiaoyao", "xingxiu", "xuanji", "baituo",
}

func IsValidClass(class string) bool {
	for _, c := range GameClasses {
		if c == class {
			return true
		}
	}
	return false
}
