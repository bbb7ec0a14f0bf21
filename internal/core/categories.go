package core

// The 9 expense categories are fixed reference data. They are seeded into
// the database by migration and mirrored here so that validation and
// display lookups never need a round trip.
var categories = []Category{
	{ID: 1, Name: "食費", Slug: "food", Icon: "🍔", OrderIndex: 1},
	{ID: 2, Name: "日用品", Slug: "daily-needs", Icon: "🛍️", OrderIndex: 2},
	{ID: 3, Name: "交通費", Slug: "transportation", Icon: "🚗", OrderIndex: 3},
	{ID: 4, Name: "娯楽", Slug: "entertainment", Icon: "🎉", OrderIndex: 4},
	{ID: 5, Name: "衣服・美容", Slug: "clothing-beauty", Icon: "👔", OrderIndex: 5},
	{ID: 6, Name: "医療・健康", Slug: "health", Icon: "🏥", OrderIndex: 6},
	{ID: 7, Name: "住居費", Slug: "housing", Icon: "🏠", OrderIndex: 7},
	{ID: 8, Name: "通信費", Slug: "communication", Icon: "📱", OrderIndex: 8},
	{ID: 9, Name: "その他", Slug: "other", Icon: "💡", OrderIndex: 9},
}

// Categories returns the registry in display order. The returned slice is a
// copy; callers may not mutate reference data.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// CategoryByID looks up a category by its 1-based ID.
func CategoryByID(id int) (Category, bool) {
	if id < 1 || id > len(categories) {
		return Category{}, false
	}
	return categories[id-1], true
}
