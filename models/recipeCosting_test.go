package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestSnapshot() *costingSnapshot {
	return &costingSnapshot{
		recipes:     map[int]recipeNode{},
		conversions: map[conversionKey]decimal.Decimal{},
		purchases:   map[int][]purchaseLine{},
		avgCosts:    map[int]decimal.Decimal{},
	}
}

const (
	flourId = 1
	oilId   = 2
	saltId  = 3

	kgUnit = 10
	gUnit  = 11
	lUnit  = 12
)

// flour bought twice: 2 kg at 500 and 3 kg at 700 is 3100 spent over
// 5000 g, an average of 0.62 per gram
func snapshotWithFlour() *costingSnapshot {
	s := newTestSnapshot()
	s.conversions[conversionKey{RawMaterialId: flourId, UnitId: kgUnit}] = dec("1000")
	s.conversions[conversionKey{RawMaterialId: flourId, UnitId: gUnit}] = dec("1")
	s.purchases[flourId] = []purchaseLine{
		{UnitId: kgUnit, Quantity: dec("2"), UnitPrice: dec("500")},
		{UnitId: kgUnit, Quantity: dec("3"), UnitPrice: dec("700")},
	}
	return s
}

func TestAverageCostWeightedByBaseQuantity(t *testing.T) {
	s := snapshotWithFlour()
	got, err := s.averageCost(flourId)
	if err != nil {
		t.Fatalf("averageCost: %v", err)
	}
	if !got.Equal(dec("0.62")) {
		t.Errorf("got %s, want 0.62", got)
	}
}

func TestAverageCostNoHistoryIsZero(t *testing.T) {
	s := newTestSnapshot()
	got, err := s.averageCost(saltId)
	if err != nil {
		t.Fatalf("averageCost: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("got %s, want 0", got)
	}
}

func TestAverageCostCarries28DigitDivision(t *testing.T) {
	if decimal.DivisionPrecision != 28 {
		t.Fatalf("decimal.DivisionPrecision = %d, want 28", decimal.DivisionPrecision)
	}

	// 1 spent over 3 base units: the repeating fraction must keep all 28
	// decimal places, not the library's 16-digit default.
	s := newTestSnapshot()
	s.conversions[conversionKey{RawMaterialId: saltId, UnitId: kgUnit}] = dec("3")
	s.purchases[saltId] = []purchaseLine{
		{UnitId: kgUnit, Quantity: dec("1"), UnitPrice: dec("1")},
	}

	got, err := s.averageCost(saltId)
	if err != nil {
		t.Fatalf("averageCost: %v", err)
	}
	if got.Exponent() != -28 {
		t.Errorf("average cost %s has exponent %d, want -28", got, got.Exponent())
	}
	if !got.Equal(dec("0.3333333333333333333333333333")) {
		t.Errorf("got %s, want 0.3333333333333333333333333333", got)
	}
}

func TestCostAndYieldSimpleRecipe(t *testing.T) {
	s := snapshotWithFlour()
	s.recipes[1] = recipeNode{
		Ingredients: []recipeIngredientLine{
			{RawMaterialId: flourId, UnitId: gUnit, Quantity: dec("150")},
		},
	}

	cost, yield, err := s.costAndYield(1, 0)
	if err != nil {
		t.Fatalf("costAndYield: %v", err)
	}
	if !cost.Equal(dec("93")) {
		t.Errorf("cost = %s, want 93", cost)
	}
	if !yield.Equal(dec("150")) {
		t.Errorf("yield = %s, want 150", yield)
	}
}

func TestCostAndYieldMissingConversionDefaultsToOne(t *testing.T) {
	s := newTestSnapshot()
	// oil priced per litre, but no conversion row for the litre unit:
	// both purchase and recipe quantities pass through with factor 1
	s.purchases[oilId] = []purchaseLine{
		{UnitId: lUnit, Quantity: dec("10"), UnitPrice: dec("4")},
	}
	s.recipes[1] = recipeNode{
		Ingredients: []recipeIngredientLine{
			{RawMaterialId: oilId, UnitId: lUnit, Quantity: dec("2")},
		},
	}

	cost, yield, err := s.costAndYield(1, 0)
	if err != nil {
		t.Fatalf("costAndYield: %v", err)
	}
	if !cost.Equal(dec("8")) {
		t.Errorf("cost = %s, want 8", cost)
	}
	if !yield.Equal(dec("2")) {
		t.Errorf("yield = %s, want 2", yield)
	}
}

func TestCostAndYieldStrictMissingConversion(t *testing.T) {
	s := newTestSnapshot()
	s.strict = true
	s.recipes[1] = recipeNode{
		Ingredients: []recipeIngredientLine{
			{RawMaterialId: oilId, UnitId: lUnit, Quantity: dec("2")},
		},
	}
	if _, _, err := s.costAndYield(1, 0); err == nil {
		t.Error("expected an error for a missing conversion in strict mode")
	}
}

func TestCostAndYieldEmptyRecipe(t *testing.T) {
	s := newTestSnapshot()
	s.recipes[1] = recipeNode{}

	cost, yield, err := s.costAndYield(1, 0)
	if err != nil {
		t.Fatalf("costAndYield: %v", err)
	}
	if !cost.IsZero() || !yield.IsZero() {
		t.Errorf("got (%s, %s), want (0, 0)", cost, yield)
	}
}

func TestCostAndYieldUnknownRecipe(t *testing.T) {
	s := newTestSnapshot()
	cost, yield, err := s.costAndYield(99, 0)
	if err != nil {
		t.Fatalf("costAndYield: %v", err)
	}
	if !cost.IsZero() || !yield.IsZero() {
		t.Errorf("got (%s, %s), want (0, 0)", cost, yield)
	}
}

func TestCostAndYieldNestedSubRecipe(t *testing.T) {
	s := snapshotWithFlour()
	// dough: 500 g flour, costs 310, yields 500 g (0.62 per gram)
	s.recipes[2] = recipeNode{
		Ingredients: []recipeIngredientLine{
			{RawMaterialId: flourId, UnitId: gUnit, Quantity: dec("500")},
		},
	}
	// pizza uses 250 g of dough: 250 × 310/500 = 155
	s.recipes[1] = recipeNode{
		SubRecipes: []recipeSubLine{
			{SubRecipeId: 2, QuantityGrams: dec("250")},
		},
	}

	cost, yield, err := s.costAndYield(1, 0)
	if err != nil {
		t.Fatalf("costAndYield: %v", err)
	}
	if !cost.Equal(dec("155")) {
		t.Errorf("cost = %s, want 155", cost)
	}
	if !yield.Equal(dec("250")) {
		t.Errorf("yield = %s, want 250", yield)
	}
}

func TestCostAndYieldZeroYieldSubRecipeContributesNoCost(t *testing.T) {
	s := newTestSnapshot()
	s.recipes[2] = recipeNode{}
	s.recipes[1] = recipeNode{
		SubRecipes: []recipeSubLine{
			{SubRecipeId: 2, QuantityGrams: dec("100")},
		},
	}

	cost, yield, err := s.costAndYield(1, 0)
	if err != nil {
		t.Fatalf("costAndYield: %v", err)
	}
	if !cost.IsZero() {
		t.Errorf("cost = %s, want 0", cost)
	}
	if !yield.Equal(dec("100")) {
		t.Errorf("yield = %s, want 100", yield)
	}
}

func TestCostAndYieldDepthBound(t *testing.T) {
	s := newTestSnapshot()
	// a self-referencing node can only exist if the write-time check was
	// disabled; the engine must still terminate
	s.recipes[1] = recipeNode{
		SubRecipes: []recipeSubLine{
			{SubRecipeId: 1, QuantityGrams: dec("100")},
		},
	}
	if _, _, err := s.costAndYield(1, 0); err == nil {
		t.Error("expected a depth error for a cyclic recipe graph")
	}
}

func TestCostRoundedPerLevel(t *testing.T) {
	s := newTestSnapshot()
	s.conversions[conversionKey{RawMaterialId: flourId, UnitId: gUnit}] = dec("1")
	// 3 g at 1/3 each: unrounded 0.999..., rounded to 1.00 at the level
	s.purchases[flourId] = []purchaseLine{
		{UnitId: gUnit, Quantity: dec("3"), UnitPrice: dec("0.333333")},
	}
	s.recipes[1] = recipeNode{
		Ingredients: []recipeIngredientLine{
			{RawMaterialId: flourId, UnitId: gUnit, Quantity: dec("3")},
		},
	}

	cost, _, err := s.costAndYield(1, 0)
	if err != nil {
		t.Fatalf("costAndYield: %v", err)
	}
	if !cost.Equal(dec("1")) {
		t.Errorf("cost = %s, want 1", cost)
	}
}

func TestMaterialRequirementsNested(t *testing.T) {
	s := snapshotWithFlour()
	s.recipes[2] = recipeNode{
		Ingredients: []recipeIngredientLine{
			{RawMaterialId: flourId, UnitId: gUnit, Quantity: dec("500")},
		},
	}
	s.recipes[1] = recipeNode{
		Ingredients: []recipeIngredientLine{
			{RawMaterialId: flourId, UnitId: gUnit, Quantity: dec("100")},
		},
		SubRecipes: []recipeSubLine{
			{SubRecipeId: 2, QuantityGrams: dec("250")},
		},
	}

	acc := map[int]decimal.Decimal{}
	if err := s.materialRequirements(1, dec("2"), 0, acc); err != nil {
		t.Fatalf("materialRequirements: %v", err)
	}
	// per batch: 100 g direct + 250/500 of the dough's 500 g = 350 g; ×2 batches
	if !acc[flourId].Equal(dec("700")) {
		t.Errorf("flour = %s, want 700", acc[flourId])
	}
}
