package wargame

// StandardScenario returns a small two-alliance European map at the start of
// germany's combat move. Turn order is germany, russia, britain, italy.
func StandardScenario() *GameState {
	m := NewMap()
	land := []Territory{
		{ID: "berlin", Name: "Berlin", Owner: "germany", Production: 10, Capital: "germany"},
		{ID: "poland", Name: "Poland", Owner: "germany", Production: 2},
		{ID: "france", Name: "France", Owner: "germany", Production: 6},
		{ID: "norway", Name: "Norway", Owner: "germany", Production: 3},
		{ID: "baltic_states", Name: "Baltic States", Owner: "russia", Production: 2},
		{ID: "ukraine", Name: "Ukraine", Owner: "russia", Production: 3},
		{ID: "moscow", Name: "Moscow", Owner: "russia", Production: 8, Capital: "russia"},
		{ID: "london", Name: "London", Owner: "britain", Production: 8, Capital: "britain"},
		{ID: "egypt", Name: "Egypt", Owner: "britain", Production: 2},
		{ID: "rome", Name: "Rome", Owner: "italy", Production: 6, Capital: "italy"},
		{ID: "north_africa", Name: "North Africa", Owner: "italy", Production: 2},
		{ID: "switzerland", Name: "Switzerland", Production: 1},
	}
	sea := []string{"north_sea", "baltic_sea", "channel", "atlantic", "med_west", "med_east", "red_sea"}
	for i := range land {
		t := land[i]
		m.AddTerritory(&t)
	}
	for _, id := range sea {
		m.AddTerritory(&Territory{ID: id, Name: id, Water: true})
	}
	for _, e := range [][2]string{
		{"berlin", "poland"}, {"berlin", "france"}, {"berlin", "switzerland"},
		{"poland", "baltic_states"}, {"poland", "ukraine"},
		{"baltic_states", "moscow"}, {"ukraine", "moscow"},
		{"france", "switzerland"}, {"france", "rome"}, {"switzerland", "rome"},
		{"north_africa", "egypt"},
		{"berlin", "baltic_sea"}, {"poland", "baltic_sea"}, {"baltic_states", "baltic_sea"}, {"norway", "baltic_sea"},
		{"norway", "north_sea"}, {"london", "north_sea"},
		{"london", "channel"}, {"france", "channel"},
		{"france", "med_west"}, {"rome", "med_west"}, {"north_africa", "med_west"},
		{"rome", "med_east"}, {"north_africa", "med_east"}, {"egypt", "med_east"},
		{"egypt", "red_sea"},
		{"north_sea", "baltic_sea"}, {"north_sea", "channel"}, {"channel", "atlantic"},
		{"atlantic", "med_west"}, {"med_west", "med_east"}, {"med_east", "red_sea"},
	} {
		m.Connect(e[0], e[1])
	}
	m.AddCanal(Canal{Name: "suez", SeaZones: [2]string{"med_east", "red_sea"}, Controllers: []string{"egypt"}})

	gs := NewGameState(m)
	gs.AddPlayer("germany", "axis")
	gs.AddPlayer("russia", "allies")
	gs.AddPlayer("britain", "allies")
	gs.AddPlayer("italy", "axis")

	types := StandardUnitTypes()
	ids := &unitIDGen{}
	place := func(territory, owner, typ string, n int) {
		for range n {
			u := NewUnit(ids.id(owner[:3]), owner, types[typ])
			// scenario layout is static; Place only fails on bad IDs
			_ = gs.Place(territory, u)
		}
	}

	place("berlin", "germany", "infantry", 3)
	place("berlin", "germany", "artillery", 1)
	place("berlin", "germany", "armour", 2)
	place("berlin", "germany", "fighter", 1)
	place("berlin", "germany", "aa_gun", 1)
	place("berlin", "germany", "factory", 1)
	place("poland", "germany", "infantry", 2)
	place("poland", "germany", "armour", 1)
	place("france", "germany", "infantry", 2)
	place("france", "germany", "artillery", 1)
	place("france", "germany", "fighter", 1)
	place("norway", "germany", "infantry", 1)
	place("baltic_sea", "germany", "transport", 1)
	place("baltic_sea", "germany", "cruiser", 1)
	place("baltic_sea", "germany", "submarine", 1)

	place("moscow", "russia", "infantry", 4)
	place("moscow", "russia", "artillery", 1)
	place("moscow", "russia", "armour", 1)
	place("moscow", "russia", "fighter", 1)
	place("moscow", "russia", "factory", 1)
	place("baltic_states", "russia", "infantry", 2)
	place("ukraine", "russia", "infantry", 1)

	place("london", "britain", "infantry", 2)
	place("london", "britain", "fighter", 1)
	place("london", "britain", "aa_gun", 1)
	place("london", "britain", "factory", 1)
	place("london", "britain", "airfield", 1)
	place("channel", "britain", "cruiser", 1)
	place("egypt", "britain", "infantry", 1)
	place("red_sea", "britain", "carrier", 1)

	place("rome", "italy", "infantry", 2)
	place("rome", "italy", "artillery", 1)
	place("rome", "italy", "factory", 1)
	place("north_africa", "italy", "infantry", 2)
	place("north_africa", "italy", "armour", 1)
	place("med_west", "italy", "destroyer", 1)
	place("med_west", "italy", "transport", 1)

	return gs
}
