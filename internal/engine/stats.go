package engine

type Class string

const (
	ClassWarrior Class = "warrior"
	ClassRogue   Class = "rogue"
	ClassWizard  Class = "wizard"
	ClassBard    Class = "bard"
	ClassPaladin Class = "paladin"
	ClassRanger  Class = "ranger"
	ClassCleric  Class = "cleric"
)

type Stats struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Intelligence int `json:"intelligence"`
}

var classStats = map[Class]Stats{
	ClassWarrior: {Strength: 8, Dexterity: 5, Intelligence: 3},
	ClassRogue:   {Strength: 4, Dexterity: 9, Intelligence: 5},
	ClassWizard:  {Strength: 2, Dexterity: 4, Intelligence: 10},
	ClassBard:    {Strength: 3, Dexterity: 6, Intelligence: 7},
	ClassPaladin: {Strength: 7, Dexterity: 4, Intelligence: 5},
	ClassRanger:  {Strength: 5, Dexterity: 8, Intelligence: 4},
	ClassCleric:  {Strength: 5, Dexterity: 4, Intelligence: 6},
}

// StatsForClass returns the stat block for a class. Unrecognized class
// names get the warrior baseline rather than an error; clients that send
// a made-up class still receive a playable character.
func StatsForClass(c Class) Stats {
	if s, ok := classStats[c]; ok {
		return s
	}
	return classStats[ClassWarrior]
}
