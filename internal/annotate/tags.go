package annotate

import (
	"sort"
	"strings"
)

// MaxTags is the most tags kept per review. The sorted tag list is cut
// alphabetically, not by relevance.
const MaxTags = 8

// Tag is a short topical label. The string value is what gets stored.
type Tag string

// Category groups tags by the aspect of the visit they describe.
type Category string

const (
	CategoryFood       Category = "food"
	CategoryService    Category = "service"
	CategoryAtmosphere Category = "atmosphere"
	CategoryPrice      Category = "price"
	CategoryDrinks     Category = "drinks"
	CategoryPlace      Category = "place"
)

// Food
const (
	TagTastyFood          Tag = "Вкусная еда"
	TagFreshIngredients   Tag = "Свежие продукты"
	TagQualityIngredients Tag = "Качественные продукты"
	TagBadFood            Tag = "Невкусная еда"
	TagSpoiledIngredients Tag = "Испорченные продукты"
)

// Service
const (
	TagPoliteStaff       Tag = "Вежливый персонал"
	TagAttentiveStaff    Tag = "Внимательный персонал"
	TagProfessionalStaff Tag = "Профессиональный персонал"
	TagFastService       Tag = "Быстрое обслуживание"
	TagSlowService       Tag = "Медленное обслуживание"
	TagRudeStaff         Tag = "Грубый персонал"
)

// Atmosphere
const (
	TagCozy           Tag = "Уютная атмосфера"
	TagComfortable    Tag = "Комфортная атмосфера"
	TagBeautifulDecor Tag = "Красивый интерьер"
	TagAtmospheric    Tag = "Атмосферное место"
	TagRomantic       Tag = "Романтическая атмосфера"
	TagFamilyFriendly Tag = "Семейная атмосфера"
	TagLoudMusic      Tag = "Громкая музыка"
	TagNoisy          Tag = "Шумно"
	TagQuiet          Tag = "Тихое место"
	TagCramped        Tag = "Теснота"
)

// Price
const (
	TagAffordable Tag = "Доступные цены"
	TagHighPrices Tag = "Высокие цены"
	TagGoodValue  Tag = "Хорошее соотношение цены и качества"
	TagOverpriced Tag = "Завышенные цены"
)

// Drinks
const (
	TagCoffee    Tag = "Кофе"
	TagTea       Tag = "Чай"
	TagBeer      Tag = "Пиво"
	TagWine      Tag = "Вино"
	TagCocktails Tag = "Коктейли"
	TagLemonades Tag = "Лимонады"
	TagJuices    Tag = "Соки"
	TagDrinks    Tag = "Напитки"
	TagBar       Tag = "Бар"
	TagWineList  Tag = "Винная карта"
	TagCraftBeer Tag = "Крафтовое пиво"
)

// Place type and visitor behaviour
const (
	TagRecommended   Tag = "Рекомендуют"
	TagFavoritePlace Tag = "Любимое место"
	TagRegulars      Tag = "Постоянные клиенты"
	TagWillReturn    Tag = "Хотят вернуться"
	TagPopular       Tag = "Популярное место"
	TagReservations  Tag = "Бронирование столиков"
	TagCompliments   Tag = "Комплименты от заведения"
	TagBreakfast     Tag = "Завтраки"
	TagBusinessLunch Tag = "Бизнес-ланч"
	TagDelivery      Tag = "Доставка"
	TagSummerVeranda Tag = "Летняя веранда"
	TagSummerTerrace Tag = "Летняя терраса"
)

type tagInfo struct {
	category Category
	english  string
}

var tagCatalog = map[Tag]tagInfo{
	TagTastyFood:          {CategoryFood, "Tasty food"},
	TagFreshIngredients:   {CategoryFood, "Fresh ingredients"},
	TagQualityIngredients: {CategoryFood, "Quality ingredients"},
	TagBadFood:            {CategoryFood, "Bad food"},
	TagSpoiledIngredients: {CategoryFood, "Spoiled ingredients"},

	TagPoliteStaff:       {CategoryService, "Polite staff"},
	TagAttentiveStaff:    {CategoryService, "Attentive staff"},
	TagProfessionalStaff: {CategoryService, "Professional staff"},
	TagFastService:       {CategoryService, "Fast service"},
	TagSlowService:       {CategoryService, "Slow service"},
	TagRudeStaff:         {CategoryService, "Rude staff"},

	TagCozy:           {CategoryAtmosphere, "Cozy atmosphere"},
	TagComfortable:    {CategoryAtmosphere, "Comfortable atmosphere"},
	TagBeautifulDecor: {CategoryAtmosphere, "Beautiful interior"},
	TagAtmospheric:    {CategoryAtmosphere, "Atmospheric place"},
	TagRomantic:       {CategoryAtmosphere, "Romantic atmosphere"},
	TagFamilyFriendly: {CategoryAtmosphere, "Family atmosphere"},
	TagLoudMusic:      {CategoryAtmosphere, "Loud music"},
	TagNoisy:          {CategoryAtmosphere, "Noisy"},
	TagQuiet:          {CategoryAtmosphere, "Quiet place"},
	TagCramped:        {CategoryAtmosphere, "Cramped"},

	TagAffordable: {CategoryPrice, "Affordable prices"},
	TagHighPrices: {CategoryPrice, "High prices"},
	TagGoodValue:  {CategoryPrice, "Good value for money"},
	TagOverpriced: {CategoryPrice, "Overpriced"},

	TagCoffee:    {CategoryDrinks, "Coffee"},
	TagTea:       {CategoryDrinks, "Tea"},
	TagBeer:      {CategoryDrinks, "Beer"},
	TagWine:      {CategoryDrinks, "Wine"},
	TagCocktails: {CategoryDrinks, "Cocktails"},
	TagLemonades: {CategoryDrinks, "Lemonades"},
	TagJuices:    {CategoryDrinks, "Juices"},
	TagDrinks:    {CategoryDrinks, "Drinks"},
	TagBar:       {CategoryDrinks, "Bar"},
	TagWineList:  {CategoryDrinks, "Wine list"},
	TagCraftBeer: {CategoryDrinks, "Craft beer"},

	TagRecommended:   {CategoryPlace, "Recommended"},
	TagFavoritePlace: {CategoryPlace, "Favorite place"},
	TagRegulars:      {CategoryPlace, "Regular customers"},
	TagWillReturn:    {CategoryPlace, "Will return"},
	TagPopular:       {CategoryPlace, "Popular place"},
	TagReservations:  {CategoryPlace, "Table reservation"},
	TagCompliments:   {CategoryPlace, "Complimentary treats"},
	TagBreakfast:     {CategoryPlace, "Breakfasts"},
	TagBusinessLunch: {CategoryPlace, "Business lunch"},
	TagDelivery:      {CategoryPlace, "Delivery"},
	TagSummerVeranda: {CategoryPlace, "Summer veranda"},
	TagSummerTerrace: {CategoryPlace, "Summer terrace"},
}

// English returns the English display label.
func (t Tag) English() string {
	if info, ok := tagCatalog[t]; ok {
		return info.english
	}
	return string(t)
}

// Category returns the category a tag belongs to, or "" if unknown.
func (t Tag) Category() Category {
	return tagCatalog[t].category
}

// Catalog returns every known tag, sorted.
func Catalog() []Tag {
	out := make([]Tag, 0, len(tagCatalog))
	for t := range tagCatalog {
		out = append(out, t)
	}
	sortTags(out)
	return out
}

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{
		CategoryFood, CategoryService, CategoryAtmosphere,
		CategoryPrice, CategoryDrinks, CategoryPlace,
	}
}

// ByCategory groups tags by their category, keeping the input order within
// each group. Unknown tags are dropped.
func ByCategory(tags []Tag) map[Category][]Tag {
	out := make(map[Category][]Tag)
	for _, t := range tags {
		c := t.Category()
		if c == "" {
			continue
		}
		out[c] = append(out[c], t)
	}
	return out
}

// indicator maps a substring of the lowercased review to a tag.
type indicator struct {
	key string
	tag Tag
}

var foodIndicators = []indicator{
	{"вкусно", TagTastyFood},
	{"вкусный", TagTastyFood},
	{"вкусная", TagTastyFood},
	{"вкусное", TagTastyFood},
	{"вкусные", TagTastyFood},
	{"свежий", TagFreshIngredients},
	{"свежая", TagFreshIngredients},
	{"свежее", TagFreshIngredients},
	{"свежие", TagFreshIngredients},
	{"качественный", TagQualityIngredients},
	{"качественная", TagQualityIngredients},
	{"качественное", TagQualityIngredients},
	{"качественные", TagQualityIngredients},
	{"невкусно", TagBadFood},
	{"невкусный", TagBadFood},
	{"испорченный", TagSpoiledIngredients},
	{"испорченная", TagSpoiledIngredients},
}

// Only praise is checked for a preceding negation.
var guardedFoodTags = map[Tag]bool{
	TagTastyFood:          true,
	TagFreshIngredients:   true,
	TagQualityIngredients: true,
}

var (
	foodNegations = []string{"не", "ни"}
	// Each entry is placed between the negation and the indicator.
	foodNegationGaps = []string{" ", "", " очень ", " слишком ", " совсем "}
)

var serviceIndicators = []indicator{
	{"вежливый", TagPoliteStaff},
	{"вежливая", TagPoliteStaff},
	{"вежливые", TagPoliteStaff},
	{"внимательный", TagAttentiveStaff},
	{"внимательная", TagAttentiveStaff},
	{"внимательные", TagAttentiveStaff},
	{"профессиональный", TagProfessionalStaff},
	{"профессиональная", TagProfessionalStaff},
	{"профессиональные", TagProfessionalStaff},
	{"быстрое обслуживание", TagFastService},
	{"быстрая подача", TagFastService},
	{"медленное обслуживание", TagSlowService},
	{"долго ждать", TagSlowService},
	{"грубый", TagRudeStaff},
	{"грубая", TagRudeStaff},
	{"грубые", TagRudeStaff},
}

var (
	fastServiceContext = []string{"обслуживание", "подача", "принесли"}
	slowServiceRoots   = []string{"долго", "медленно"}
	// "ждал" covers ждал, ждала and ждали.
	slowServiceContext = []string{"обслуживание", "подача", "ждать", "ждал"}
)

var atmosphereIndicators = []indicator{
	{"уютно", TagCozy},
	{"уютный", TagCozy},
	{"уютная", TagCozy},
	{"уютное", TagCozy},
	{"комфортно", TagComfortable},
	{"комфортный", TagComfortable},
	{"комфортная", TagComfortable},
	{"комфортное", TagComfortable},
	{"красивый интерьер", TagBeautifulDecor},
	{"интерьер", TagBeautifulDecor},
	{"оформление", TagBeautifulDecor},
	{"дизайн", TagBeautifulDecor},
	{"атмосфер", TagAtmospheric},
	{"романтич", TagRomantic},
	{"семейн", TagFamilyFriendly},
	{"громкая музыка", TagLoudMusic},
	{"шумно", TagNoisy},
	{"тихо", TagQuiet},
	{"тесно", TagCramped},
	{"мало места", TagCramped},
}

var priceIndicators = []indicator{
	{"доступные цены", TagAffordable},
	{"недорого", TagAffordable},
	{"дешево", TagAffordable},
	{"приемлемые цены", TagAffordable},
	{"демократичные цены", TagAffordable},
	{"дорого", TagHighPrices},
	{"завышенные цены", TagHighPrices},
	{"высокие цены", TagHighPrices},
	{"соотношение цена-качество", TagGoodValue},
	{"цена качество", TagGoodValue},
	{"стоит своих денег", TagGoodValue},
	{"переплата", TagOverpriced},
}

var (
	highPriceRoots       = []string{"высок", "завышен", "дорог"}
	affordablePriceRoots = []string{"доступн", "демократичн", "приемлем"}
)

var drinksIndicators = []indicator{
	{"кофе", TagCoffee},
	{"чай", TagTea},
	{"пиво", TagBeer},
	{"вино", TagWine},
	{"коктейль", TagCocktails},
	{"лимонад", TagLemonades},
	{"сок", TagJuices},
	{"напитки", TagDrinks},
	{"бар", TagBar},
	{"винная карта", TagWineList},
	{"крафтовое пиво", TagCraftBeer},
}

var placeIndicators = []indicator{
	{"рекомендую", TagRecommended},
	{"советую", TagRecommended},
	{"любимое место", TagFavoritePlace},
	{"постоянный клиент", TagRegulars},
	{"вернусь", TagWillReturn},
	{"очередь", TagPopular},
	{"бронирование", TagReservations},
	{"нет мест", TagPopular},
	{"комплимент", TagCompliments},
	{"подарили", TagCompliments},
	{"завтрак", TagBreakfast},
	{"бизнес-ланч", TagBusinessLunch},
	{"доставка", TagDelivery},
	{"веранда", TagSummerVeranda},
	{"терраса", TagSummerTerrace},
}

// tagSet accumulates tags. Analyzers only ever add to it.
type tagSet map[Tag]struct{}

func (s tagSet) add(t Tag) { s[t] = struct{}{} }

// analyzer inspects lowercased text and adds the tags it finds.
type analyzer func(lower string, tags tagSet)

// TagExtractor derives topical tags from review text.
type TagExtractor struct {
	analyzers []analyzer
}

// NewTagExtractor creates an extractor with the six category analyzers.
func NewTagExtractor() *TagExtractor {
	return &TagExtractor{
		analyzers: []analyzer{
			analyzeFood,
			analyzeService,
			flatAnalyzer(atmosphereIndicators),
			analyzePrice,
			flatAnalyzer(drinksIndicators),
			flatAnalyzer(placeIndicators),
		},
	}
}

// Extract returns at most MaxTags tags, sorted.
func (e *TagExtractor) Extract(text string) []Tag {
	lower := strings.ToLower(text)
	set := make(tagSet)
	for _, a := range e.analyzers {
		a(lower, set)
	}

	tags := make([]Tag, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sortTags(tags)

	if len(tags) > MaxTags {
		tags = tags[:MaxTags]
	}
	return tags
}

func flatAnalyzer(indicators []indicator) analyzer {
	return func(lower string, tags tagSet) {
		matchIndicators(lower, indicators, tags)
	}
}

func matchIndicators(lower string, indicators []indicator, tags tagSet) {
	for _, ind := range indicators {
		if strings.Contains(lower, ind.key) {
			tags.add(ind.tag)
		}
	}
}

func analyzeFood(lower string, tags tagSet) {
	for _, ind := range foodIndicators {
		if !strings.Contains(lower, ind.key) {
			continue
		}
		if guardedFoodTags[ind.tag] && negatedFood(lower, ind.key) {
			continue
		}
		tags.add(ind.tag)
	}
}

// negatedFood reports whether key appears right after a negation, possibly
// with an intensifier in between.
func negatedFood(lower, key string) bool {
	for _, neg := range foodNegations {
		for _, gap := range foodNegationGaps {
			if strings.Contains(lower, neg+gap+key) {
				return true
			}
		}
	}
	return false
}

func analyzeService(lower string, tags tagSet) {
	matchIndicators(lower, serviceIndicators, tags)

	if strings.Contains(lower, "быстро") &&
		containsAny(lower, fastServiceContext) &&
		!strings.Contains(lower, "не быстро") {
		tags.add(TagFastService)
	}

	if containsAny(lower, slowServiceRoots) && containsAny(lower, slowServiceContext) {
		tags.add(TagSlowService)
	}
}

func analyzePrice(lower string, tags tagSet) {
	matchIndicators(lower, priceIndicators, tags)

	if !strings.Contains(lower, "цены") {
		return
	}
	switch {
	case containsAny(lower, highPriceRoots):
		if !strings.Contains(lower, "не дорог") {
			tags.add(TagHighPrices)
		}
	case containsAny(lower, affordablePriceRoots):
		tags.add(TagAffordable)
	}
}

func sortTags(tags []Tag) {
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
}
