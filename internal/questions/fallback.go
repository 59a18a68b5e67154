package questions

import "quiz-room-service/internal/domain"

// fallbackQuestions returns the first n entries of the sample set for the
// difficulty, cycling through the set when n exceeds its length.
func fallbackQuestions(difficulty domain.Difficulty, n int) []domain.Question {
	set, ok := sampleSets[difficulty]
	if !ok {
		set = sampleSets[domain.DifficultyEasy]
	}
	out := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, set[i%len(set)])
	}
	return out
}

// sampleSets is the local, always-available question bank keyed by
// difficulty. It exists so a room can never end up with fewer questions than
// requested, whatever the generator does.
var sampleSets = map[domain.Difficulty][]domain.Question{
	domain.DifficultyEasy: {
		{
			Text:          "What is the capital of France?",
			Options:       []string{"Paris", "London", "Berlin", "Madrid"},
			CorrectOption: "Paris",
			TimeLimitSecs: 30,
			Difficulty:    domain.DifficultyEasy,
		},
		{
			Text:          "How many continents are there?",
			Options:       []string{"Five", "Six", "Seven", "Eight"},
			CorrectOption: "Seven",
			TimeLimitSecs: 30,
			Difficulty:    domain.DifficultyEasy,
		},
		{
			Text:          "Which planet is known as the Red Planet?",
			Options:       []string{"Venus", "Mars", "Jupiter", "Saturn"},
			CorrectOption: "Mars",
			TimeLimitSecs: 30,
			Difficulty:    domain.DifficultyEasy,
		},
		{
			Text:          "What is the largest ocean on Earth?",
			Options:       []string{"Atlantic", "Indian", "Arctic", "Pacific"},
			CorrectOption: "Pacific",
			TimeLimitSecs: 30,
			Difficulty:    domain.DifficultyEasy,
		},
		{
			Text:          "How many sides does a hexagon have?",
			Options:       []string{"Five", "Six", "Seven", "Eight"},
			CorrectOption: "Six",
			TimeLimitSecs: 30,
			Difficulty:    domain.DifficultyEasy,
		},
	},
	domain.DifficultyMedium: {
		{
			Text:          "In which year did the Berlin Wall fall?",
			Options:       []string{"1987", "1989", "1991", "1993"},
			CorrectOption: "1989",
			TimeLimitSecs: 20,
			Difficulty:    domain.DifficultyMedium,
		},
		{
			Text:          "What is the chemical symbol for gold?",
			Options:       []string{"Go", "Gd", "Au", "Ag"},
			CorrectOption: "Au",
			TimeLimitSecs: 20,
			Difficulty:    domain.DifficultyMedium,
		},
		{
			Text:          "Which composer wrote the Ninth Symphony known as the Choral?",
			Options:       []string{"Mozart", "Beethoven", "Bach", "Brahms"},
			CorrectOption: "Beethoven",
			TimeLimitSecs: 20,
			Difficulty:    domain.DifficultyMedium,
		},
		{
			Text:          "What is the longest river in the world?",
			Options:       []string{"Amazon", "Nile", "Yangtze", "Mississippi"},
			CorrectOption: "Nile",
			TimeLimitSecs: 20,
			Difficulty:    domain.DifficultyMedium,
		},
		{
			Text:          "Which element has the atomic number 1?",
			Options:       []string{"Helium", "Oxygen", "Hydrogen", "Carbon"},
			CorrectOption: "Hydrogen",
			TimeLimitSecs: 20,
			Difficulty:    domain.DifficultyMedium,
		},
	},
	domain.DifficultyHard: {
		{
			Text:          "Which mathematician proved Fermat's Last Theorem?",
			Options:       []string{"Andrew Wiles", "Grigori Perelman", "Terence Tao", "Paul Erdos"},
			CorrectOption: "Andrew Wiles",
			TimeLimitSecs: 15,
			Difficulty:    domain.DifficultyHard,
		},
		{
			Text:          "What is the rarest naturally occurring element in the Earth's crust?",
			Options:       []string{"Francium", "Astatine", "Promethium", "Technetium"},
			CorrectOption: "Astatine",
			TimeLimitSecs: 15,
			Difficulty:    domain.DifficultyHard,
		},
		{
			Text:          "In which year was the Treaty of Westphalia signed?",
			Options:       []string{"1618", "1648", "1668", "1688"},
			CorrectOption: "1648",
			TimeLimitSecs: 15,
			Difficulty:    domain.DifficultyHard,
		},
		{
			Text:          "Which deep-sea trench is the deepest known point on Earth?",
			Options:       []string{"Tonga Trench", "Java Trench", "Mariana Trench", "Puerto Rico Trench"},
			CorrectOption: "Mariana Trench",
			TimeLimitSecs: 15,
			Difficulty:    domain.DifficultyHard,
		},
		{
			Text:          "Who formulated the incompleteness theorems?",
			Options:       []string{"Alan Turing", "Kurt Godel", "David Hilbert", "Bertrand Russell"},
			CorrectOption: "Kurt Godel",
			TimeLimitSecs: 15,
			Difficulty:    domain.DifficultyHard,
		},
	},
}
