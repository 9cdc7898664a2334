package persona

// Persona captures the attributes of one simulated historical figure.
// Name is the canonical form the backend expects in agent lists and reply
// attribution; it may differ from the short ID used by the client.
type Persona struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	Era         string `json:"era"`
	Specialty   string `json:"specialty"`
	Description string `json:"description,omitempty"`
}

// Seed provides the default persona roster.
func Seed() []Persona {
	return []Persona{
		{
			ID:          "einstein",
			Name:        "Albert Einstein",
			Title:       "The Physics Revolutionary",
			Era:         "20th Century",
			Specialty:   "Theoretical Physics",
			Description: "German-born theoretical physicist who developed the theory of relativity, one of the two pillars of modern physics.",
		},
		{
			ID:          "monroe",
			Name:        "Marilyn Monroe",
			Title:       "Hollywood Icon",
			Era:         "20th Century",
			Specialty:   "Acting & Entertainment",
			Description: "American actress, model, and singer who became a major cultural icon of the 1950s and early 1960s.",
		},
		{
			ID:          "turing",
			Name:        "Alan Turing",
			Title:       "Father of Computer Science",
			Era:         "20th Century",
			Specialty:   "Computing & AI",
			Description: "English mathematician, logician, and cryptanalyst who made foundational contributions to computing and artificial intelligence.",
		},
		{
			ID:          "roosevelt",
			Name:        "Theodore Roosevelt",
			Title:       "26th US President",
			Era:         "Late 19th/Early 20th Century",
			Specialty:   "Politics & Conservation",
			Description: "American statesman, conservationist, and writer who served as the 26th president of the United States.",
		},
		{
			ID:          "tesla",
			Name:        "Nikola Tesla",
			Title:       "Master of Electricity",
			Era:         "Late 19th/Early 20th Century",
			Specialty:   "Electrical Engineering",
			Description: "Serbian-American inventor and electrical engineer best known for his contributions to the modern alternating current system.",
		},
		{
			ID:          "edison",
			Name:        "Thomas Edison",
			Title:       "The Wizard of Menlo Park",
			Era:         "Late 19th/Early 20th Century",
			Specialty:   "Invention & Industry",
			Description: "American inventor and businessman who developed the phonograph, the motion picture camera, and practical electric lighting.",
		},
	}
}
