package catalog

import (
	"math/rand"

	"github.com/medforge/casgen/internal/rng"
	"github.com/medforge/casgen/internal/types"
)

// NamePool holds the demographic pools for one nationality.
type NamePool struct {
	Nationality string
	GivenMale   []string
	GivenFemale []string
	FamilyNames []string
}

// Sex split and shared demographic distributions. Cohorts are military
// populations, not general ones.
var (
	sexes      = []string{"male", "female"}
	sexWeights = []float64{88, 12}

	ageBands      = []string{"18-24", "25-34", "35-44", "45-54"}
	ageWeights    = []float64{38, 40, 17, 5}

	bloodTypes   = []string{"O+", "A+", "B+", "AB+", "O-", "A-", "B-", "AB-"}
	bloodWeights = []float64{37, 34, 9, 3, 7, 6, 2, 1}
)

// DrawDemographics samples a full demographic block from the pool.
func (p *NamePool) DrawDemographics(r *rand.Rand) types.Demographics {
	sex := sexes[rng.Categorical(r, sexWeights)]
	given := p.GivenMale
	if sex == "female" {
		given = p.GivenFemale
	}
	return types.Demographics{
		Sex:        sex,
		AgeBand:    ageBands[rng.Categorical(r, ageWeights)],
		BloodType:  bloodTypes[rng.Categorical(r, bloodWeights)],
		GivenName:  given[r.Intn(len(given))],
		FamilyName: p.FamilyNames[r.Intn(len(p.FamilyNames))],
	}
}

var namePools = map[string]*NamePool{
	"USA": {
		Nationality: "USA",
		GivenMale:   []string{"James", "Michael", "Robert", "John", "David", "William", "Christopher", "Daniel", "Matthew", "Joseph"},
		GivenFemale: []string{"Emily", "Sarah", "Jessica", "Ashley", "Amanda", "Jennifer", "Stephanie", "Nicole", "Elizabeth", "Megan"},
		FamilyNames: []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez", "Anderson", "Taylor"},
	},
	"GBR": {
		Nationality: "GBR",
		GivenMale:   []string{"Oliver", "George", "Harry", "Jack", "Charlie", "Thomas", "Oscar", "William", "Henry", "Alfie"},
		GivenFemale: []string{"Olivia", "Amelia", "Isla", "Emily", "Sophia", "Grace", "Lily", "Freya", "Ella", "Charlotte"},
		FamilyNames: []string{"Smith", "Jones", "Taylor", "Brown", "Williams", "Wilson", "Johnson", "Davies", "Patel", "Wright"},
	},
	"DEU": {
		Nationality: "DEU",
		GivenMale:   []string{"Lukas", "Leon", "Finn", "Jonas", "Paul", "Felix", "Maximilian", "Moritz", "Tim", "Jan"},
		GivenFemale: []string{"Mia", "Emma", "Hannah", "Sofia", "Anna", "Lea", "Lena", "Marie", "Laura", "Johanna"},
		FamilyNames: []string{"Müller", "Schmidt", "Schneider", "Fischer", "Weber", "Meyer", "Wagner", "Becker", "Schulz", "Hoffmann"},
	},
	"FRA": {
		Nationality: "FRA",
		GivenMale:   []string{"Lucas", "Hugo", "Louis", "Gabriel", "Arthur", "Jules", "Raphaël", "Nathan", "Théo", "Antoine"},
		GivenFemale: []string{"Emma", "Louise", "Jade", "Alice", "Chloé", "Lina", "Léa", "Rose", "Anna", "Inès"},
		FamilyNames: []string{"Martin", "Bernard", "Dubois", "Thomas", "Robert", "Richard", "Petit", "Durand", "Leroy", "Moreau"},
	},
	"POL": {
		Nationality: "POL",
		GivenMale:   []string{"Jakub", "Kacper", "Antoni", "Filip", "Jan", "Szymon", "Aleksander", "Mikołaj", "Wojciech", "Adam"},
		GivenFemale: []string{"Julia", "Zuzanna", "Zofia", "Maja", "Hanna", "Lena", "Alicja", "Oliwia", "Maria", "Amelia"},
		FamilyNames: []string{"Nowak", "Kowalski", "Wiśniewski", "Wójcik", "Kowalczyk", "Kamiński", "Lewandowski", "Zieliński", "Szymański", "Woźniak"},
	},
	"UKR": {
		Nationality: "UKR",
		GivenMale:   []string{"Oleksandr", "Dmytro", "Andriy", "Serhiy", "Mykola", "Ivan", "Vasyl", "Yuriy", "Taras", "Bohdan"},
		GivenFemale: []string{"Olena", "Kateryna", "Anna", "Iryna", "Natalia", "Oksana", "Tetiana", "Yulia", "Svitlana", "Maria"},
		FamilyNames: []string{"Shevchenko", "Kovalenko", "Bondarenko", "Tkachenko", "Melnyk", "Kravchenko", "Boyko", "Oliynyk", "Shevchuk", "Polishchuk"},
	},
	"NLD": {
		Nationality: "NLD",
		GivenMale:   []string{"Daan", "Sem", "Milan", "Levi", "Luuk", "Bram", "Finn", "Jesse", "Thijs", "Lars"},
		GivenFemale: []string{"Emma", "Julia", "Mila", "Tess", "Sophie", "Zoë", "Sara", "Anna", "Eva", "Lotte"},
		FamilyNames: []string{"de Jong", "Jansen", "de Vries", "van den Berg", "van Dijk", "Bakker", "Visser", "Smit", "Meijer", "Mulder"},
	},
	"EST": {
		Nationality: "EST",
		GivenMale:   []string{"Rasmus", "Oliver", "Robin", "Markus", "Karl", "Martin", "Oskar", "Kristjan", "Sander", "Henri"},
		GivenFemale: []string{"Sofia", "Mia", "Lenna", "Emma", "Laura", "Maria", "Liisa", "Anna", "Kadri", "Triin"},
		FamilyNames: []string{"Tamm", "Saar", "Sepp", "Mägi", "Kask", "Kukk", "Rebane", "Ilves", "Pärn", "Koppel"},
	},
}
