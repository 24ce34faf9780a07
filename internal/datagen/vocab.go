package datagen

// Battery-research vocabularies used to synthesize plausible literature
// records. Drawn from the terminology of the field rather than generic lorem
// text so full-text search over abstracts returns meaningful matches.

var batteryKeywords = []string{
	"lithium-ion", "capacity", "degradation", "cycling", "electrolyte",
	"solid-state", "anode", "cathode", "dendrite", "thermal runaway",
	"fast charging", "state of charge", "state of health", "impedance",
	"silicon anode", "lithium plating", "SEI layer", "nickel-rich",
	"cobalt-free", "sodium-ion", "energy density", "power density",
	"cycle life", "calendar aging", "cell balancing", "battery management",
}

var researchMethods = []string{
	"electrochemical impedance spectroscopy", "galvanostatic cycling",
	"machine learning", "X-ray diffraction", "in situ microscopy",
	"density functional theory", "accelerated aging tests",
	"differential voltage analysis", "neutron imaging",
	"molecular dynamics simulation", "Kalman filtering",
	"incremental capacity analysis",
}

var journals = []string{
	"Journal of Power Sources", "Nature Energy", "Advanced Energy Materials",
	"Journal of The Electrochemical Society", "ACS Energy Letters",
	"Energy Storage Materials", "Electrochimica Acta", "Joule",
	"Batteries & Supercaps", "npj Computational Materials",
}

var institutions = []string{
	"MIT", "Stanford University", "University of Cambridge",
	"Toyota Research Institute", "Tesla Inc.", "CATL",
	"Argonne National Laboratory", "Helmholtz Institute Ulm",
	"Tsinghua University", "KAIST", "Imperial College London",
	"National Renewable Energy Laboratory", "TU Munich",
	"University of Oxford", "Dalhousie University",
}

var givenNames = []string{
	"Wei", "Yuki", "Anna", "James", "Priya", "Mohammed", "Elena", "Lars",
	"Chen", "Sofia", "David", "Mei", "Rajesh", "Hannah", "Tomás", "Aisha",
	"Minjun", "Olga", "Pierre", "Keiko",
}

var familyNames = []string{
	"Zhang", "Tanaka", "Müller", "Smith", "Patel", "Al-Rashid", "Ivanova",
	"Andersen", "Wang", "Rossi", "Cohen", "Liu", "Kumar", "Novak",
	"García", "Okafor", "Kim", "Petrov", "Dubois", "Sato",
}

var titlePatterns = []string{
	"%s for %s: A %s Study",
	"Enhanced %s in %s through %s",
	"Investigating %s in %s using %s",
	"Towards %s: Insights from %s on %s",
	"A %s Approach to %s in %s",
}

var abstractTemplates = []string{
	"This study investigates %s for %s applications. We demonstrate that %s " +
		"plays a decisive role in cell performance, and that %s yields a " +
		"measurable improvement over conventional baselines.",
	"We report a systematic analysis of %s using %s. The results indicate " +
		"that %s correlates strongly with %s, with implications for the design " +
		"of next-generation cells.",
	"Understanding %s remains a central challenge for %s. Here we combine %s " +
		"with long-term cycling data to quantify the impact of %s on capacity " +
		"retention.",
}
