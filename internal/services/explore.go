package services

// ExploreGenres maps explore page genre keys to curated artist names.
var ExploreGenres = map[string][]string{
	"pop-global": {
		"The Weeknd",
		"Taylor Swift",
		"Bad Bunny",
		"Sabrina Carpenter",
		"Dua Lipa",
		"Ariana Grande",
		"Billie Eilish",
		"Bruno Mars",
		"Lady Gaga",
		"Olivia Rodrigo",
		"Justin Bieber",
		"Miley Cyrus",
		"Katy Perry",
		"SZA",
		"Doja Cat",
		"Harry Styles",
	},
	"Metalcore Internacional": {
		"Metallica",
		"Slipknot",
		"System Of A Down",
		"Iron Maiden",
		"Black Sabbath",
		"Rammstein",
		"Avenged Sevenfold",
		"Korn",
		"Megadeth",
		"Slayer",
		"Judas Priest",
		"Gojira",
		"Bring Me The Horizon",
		"Pantera",
		"Deftones",
		"Ghost",
	},
	"rock-int": {
		"Linkin Park",
		"Queen",
		"The Beatles",
		"Nirvana",
		"Red Hot Chili Peppers",
		"AC/DC",
		"Guns N' Roses",
		"Foo Fighters",
		"Green Day",
		"Bon Jovi",
		"Pink Floyd",
		"Radiohead",
		"The Rolling Stones",
		"Pearl Jam",
	},
	"indie-int": {
		"Djo",
		"End of Beginning",
		"Arctic Monkeys",
		"Tame Impala",
		"The Neighbourhood",
		"Lana Del Rey",
		"The Strokes",
		"Glass Animals",
		"Mitski",
		"Florence + The Machine",
		"Clairo",
		"Vampire Weekend",
		"Wallows",
		"Cage The Elephant",
		"Twenty One Pilots",
		"Hozier",
	},
	"hip-hop-int": {
		"Kendrick Lamar",
		"Drake",
		"Travis Scott",
		"Playboi Carti",
		"Tyler, The Creator",
		"Kanye West",
		"Eminem",
		"21 Savage",
		"Post Malone",
		"Nicki Minaj",
		"Cardi B",
		"Megan Thee Stallion",
		"Future",
		"Metro Boomin",
		"J. Cole",
		"A$AP Rocky",
	},
	"Metalcore BR": {
		"Sepultura",
		"Angra",
		"Krisiun",
		"Crypta",
		"Nervosa",
		"Ratos de Porão",
		"Shaman",
		"Soulfly",
		"Viper",
		"Korzus",
		"Claustrofobia",
		"Torture Squad",
		"Black Pantera",
		"Project46",
		"Sarcófago",
	},
	"sertanejo": {
		"Henrique & Juliano",
		"Marília Mendonça",
		"Gusttavo Lima",
		"Ana Castela",
		"Jorge & Mateus",
		"Zé Neto & Cristiano",
		"Simone Mendes",
		"Luan Santana",
		"Matheus & Kauan",
		"Israel & Rodolffo",
		"Maiara & Maraisa",
		"Hugo & Guilherme",
	},
	"rap-trap-br": {
		"Matuê",
		"Veigh",
		"KayBlack",
		"MC Cabelinho",
		"Orochi",
		"Filipe Ret",
		"L7NNON",
		"Tz da Coronel",
		"Xamã",
		"BK",
		"Djonga",
		"Racionais MC's",
		"Poze do Rodo",
		"Chefin",
		"Oruam",
		"Major RD",
		"Wiu",
	},
	"funk-br": {
		"MC Ryan SP",
		"MC IG",
		"MC Kevin O Chris",
		"MC Hariel",
		"MC PH",
		"MC Paiva ZS",
		"MC Daniel",
		"Livinho",
		"MC Kevin",
		"DJ GBR",
		"Ludmilla",
		"Pedro Sampaio",
	},
	"pop-br": {
		"Anitta",
		"Luísa Sonza",
		"Pabllo Vittar",
		"Gloria Groove",
		"Jão",
		"Marina Sena",
		"Iza",
		"Léo Santana",
		"Ivete Sangalo",
		"Silva",
		"Duda Beat",
	},
	"rock-br": {
		"Legião Urbana",
		"Charlie Brown Jr.",
		"Skank",
		"Capital Inicial",
		"Titãs",
		"Pitty",
		"Engenheiros do Hawaii",
		"CPM 22",
		"Raimundos",
		"Os Paralamas do Sucesso",
		"Detonautas",
		"Nando Reis",
	},
	"emo-br": {
		"NX Zero",
		"Fresno",
		"Restart",
		"Pitty",
		"Hevo84",
		"Cine",
		"Fake Number",
		"Hateen",
		"Forfun",
		"Strike",
		"Ponto Nulo No Céu",
		"menores atos",
		"Dead Fish",
	},
	"indie-br": {
		"Gilsons",
		"Terno Rei",
		"Lagum",
		"Jovem Dionisio",
		"ANAVITÓRIA",
		"Rubel",
		"Liniker",
		"Baco Exu do Blues",
		"Tim Bernardes",
		"O Grilo",
		"Boogarins",
	},
	"mpb-classica": {
		"Caetano Veloso",
		"Gilberto Gil",
		"Chico Buarque",
		"Elis Regina",
		"Gal Costa",
		"Tom Jobim",
		"Djavan",
		"Milton Nascimento",
		"Jorge Ben Jor",
		"Tim Maia",
		"Marisa Monte",
		"Seu Jorge",
	},
}
