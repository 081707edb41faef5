package classifier

import "civicvoice/api/internal/store"

// trainingCorpus holds the example phrases each category is trained on.
// Short, citizen-style fragments work better here than full sentences.
var trainingCorpus = map[store.Category][]string{
	store.CategoryHygiene: {
		"garbage",
		"trash",
		"waste",
		"litter",
		"dumpster",
		"rubbish",
		"garbage on the street",
		"waste bin overflowing",
		"trash not collected",
		"public bathroom is dirty",
		"smell of rotten food",
		"dumpster is full",
		"need street sweeping",
		"litter everywhere",
		"overflowing drain",
		"dirty public toilet",
		"rats and pests due to trash",
		"uncollected garbage bags",
		"bad smell from sewage",
		"public urination spot",
		"waste disposal issue",
		"collection failed",
		"bins are full",
		"filthy sidewalk",
		"sanitation problem",
		"dead animal on road",
		"public sanitation",
	},
	store.CategoryRoads: {
		"pothole",
		"potholes",
		"streetlight",
		"street light",
		"traffic light",
		"broken streetlight",
		"street light is out",
		"pothole on the road",
		"crack in the pavement",
		"road is damaged",
		"traffic light is not working",
		"broken sign",
		"roadblock needs to be removed",
		"deep pothole",
		"traffic signal is stuck on red",
		"faded road markings",
		"street sign is missing",
		"uneven road surface",
		"damaged guardrail",
		"sidewalk is broken",
		"road needs repair",
		"light is out",
		"road construction left debris",
		"manhole cover is loose",
		"broken curb",
		"dangerous intersection",
		"crosswalk light is broken",
	},
	store.CategoryElectricity: {
		"power outage",
		"no electricity",
		"power cut",
		"blackout",
		"no power",
		"power is out",
		"transformer sparked",
		"frequent power cuts",
		"exposed electrical wire",
		"voltage is too low",
		"flickering lights",
		"fallen power line",
		"no power in my house",
		"electrical box is open",
		"dangerous wires hanging",
		"the power is off",
		"my lights are out",
		"electricity is down",
		"power surge",
		"high voltage",
		"low voltage",
	},
	store.CategoryWater: {
		"no water",
		"leak",
		"leaking pipe",
		"sewage",
		"drain",
		"flooding",
		"broken pipe leaking",
		"no water supply",
		"sewage problem",
		"drainage is blocked",
		"dirty water coming from tap",
		"manhole is open",
		"water logging on the street",
		"burst water main",
		"clogged drain",
		"tap water is brown",
		"sewer overflow",
		"low water pressure",
		"flooding on my road",
		"no water in my home",
		"water pipe burst",
		"clogged sewer",
		"contaminated water",
		"water is dirty",
		"smelly water",
	},
	store.CategoryOther: {
		"noise",
		"park",
		"dogs",
		"loud noise at night",
		"stray dogs are a menace",
		"park is not maintained",
		"public disturbance",
		"barking dogs all night",
		"illegal construction",
		"broken bench in the park",
		"playground equipment is unsafe",
		"just testing",
		"i have a problem",
		"loud music",
		"stray animals",
		"tree has fallen",
		"broken swing",
		"graffiti",
	},
}
