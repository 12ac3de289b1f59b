package models

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"github.com/shopspring/decimal"
)

// maxCostingDepth bounds sub-recipe nesting during costing. Writes already
// reject cycles, this is the backstop for data that predates the check.
const maxCostingDepth = 32

type recipeIngredientLine struct {
	RawMaterialId int
	UnitId        int
	Quantity      decimal.Decimal
}

type recipeSubLine struct {
	SubRecipeId   int
	QuantityGrams decimal.Decimal
}

type recipeNode struct {
	Ingredients []recipeIngredientLine
	SubRecipes  []recipeSubLine
}

type purchaseLine struct {
	UnitId    int
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// costingSnapshot holds everything costing needs, loaded up front so the
// recursion itself never touches the database.
type costingSnapshot struct {
	recipes     map[int]recipeNode
	conversions map[conversionKey]decimal.Decimal
	purchases   map[int][]purchaseLine
	strict      bool

	avgCosts map[int]decimal.Decimal
}

// toBaseFactor converts a quantity in unitId to the material's base unit.
// A missing conversion falls back to factor 1 unless strict mode is on.
func (s *costingSnapshot) toBaseFactor(rawMaterialId int, unitId int) (decimal.Decimal, error) {
	if factor, ok := s.conversions[conversionKey{RawMaterialId: rawMaterialId, UnitId: unitId}]; ok {
		return factor, nil
	}
	if s.strict {
		return decimal.Zero, fmt.Errorf("no conversion for raw material %d unit %d", rawMaterialId, unitId)
	}
	return decimal.NewFromInt(1), nil
}

// averageCost returns the material's weighted average cost per base unit:
// total money spent on it divided by total base quantity bought. Materials
// with no purchase history cost zero. Memoized per snapshot.
func (s *costingSnapshot) averageCost(rawMaterialId int) (decimal.Decimal, error) {
	if cost, ok := s.avgCosts[rawMaterialId]; ok {
		return cost, nil
	}

	totalSpent := decimal.Zero
	totalBaseQty := decimal.Zero
	for _, line := range s.purchases[rawMaterialId] {
		factor, err := s.toBaseFactor(rawMaterialId, line.UnitId)
		if err != nil {
			return decimal.Zero, err
		}
		totalSpent = totalSpent.Add(line.Quantity.Mul(line.UnitPrice))
		totalBaseQty = totalBaseQty.Add(line.Quantity.Mul(factor))
	}

	cost := decimal.Zero
	if totalBaseQty.IsPositive() {
		cost = totalSpent.Div(totalBaseQty)
	}
	s.avgCosts[rawMaterialId] = cost
	return cost, nil
}

// costAndYield computes the total ingredient cost and the base quantity (in
// grams or ml) produced by one batch of the recipe, descending into
// sub-recipes. A sub-recipe line takes quantityGrams of the child batch at
// the child's cost per base unit; a child that yields nothing costs nothing.
// Cost is rounded to 2 decimal places at each level, yield is not rounded.
func (s *costingSnapshot) costAndYield(recipeId int, depth int) (decimal.Decimal, decimal.Decimal, error) {
	if depth > maxCostingDepth {
		return decimal.Zero, decimal.Zero, fmt.Errorf("recipe %d nests deeper than %d levels", recipeId, maxCostingDepth)
	}

	node, ok := s.recipes[recipeId]
	if !ok {
		return decimal.Zero, decimal.Zero, nil
	}

	cost := decimal.Zero
	yield := decimal.Zero

	for _, line := range node.Ingredients {
		factor, err := s.toBaseFactor(line.RawMaterialId, line.UnitId)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		unitCost, err := s.averageCost(line.RawMaterialId)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		baseQty := line.Quantity.Mul(factor)
		cost = cost.Add(baseQty.Mul(unitCost))
		yield = yield.Add(baseQty)
	}

	for _, line := range node.SubRecipes {
		childCost, childYield, err := s.costAndYield(line.SubRecipeId, depth+1)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		if childYield.IsPositive() {
			costPerBase := childCost.Div(childYield)
			cost = cost.Add(costPerBase.Mul(line.QuantityGrams))
		}
		yield = yield.Add(line.QuantityGrams)
	}

	return cost.Round(2), yield, nil
}

func loadCostingSnapshot(ctx context.Context, businessId string) (*costingSnapshot, error) {
	db := config.GetDB()

	var recipes []Recipe
	if err := db.WithContext(ctx).Where("business_id = ?", businessId).Find(&recipes).Error; err != nil {
		return nil, err
	}
	var ingredients []RecipeRawMaterial
	if err := db.WithContext(ctx).Where("business_id = ?", businessId).Find(&ingredients).Error; err != nil {
		return nil, err
	}
	var subLinks []RecipeSubRecipe
	if err := db.WithContext(ctx).Where("business_id = ?", businessId).Find(&subLinks).Error; err != nil {
		return nil, err
	}

	nodes := make(map[int]recipeNode, len(recipes))
	for _, recipe := range recipes {
		nodes[recipe.ID] = recipeNode{}
	}
	for _, line := range ingredients {
		node := nodes[line.RecipeId]
		node.Ingredients = append(node.Ingredients, recipeIngredientLine{
			RawMaterialId: line.RawMaterialId,
			UnitId:        line.UnitId,
			Quantity:      line.Quantity,
		})
		nodes[line.RecipeId] = node
	}
	for _, link := range subLinks {
		node := nodes[link.RecipeId]
		node.SubRecipes = append(node.SubRecipes, recipeSubLine{
			SubRecipeId:   link.SubRecipeId,
			QuantityGrams: link.QuantityGrams,
		})
		nodes[link.RecipeId] = node
	}

	conversions, err := loadConversionMap(ctx, businessId)
	if err != nil {
		return nil, err
	}

	// only received orders feed the average, pending prices are quotes
	var items []PurchaseOrderItem
	if err := db.WithContext(ctx).
		Joins("JOIN purchase_orders ON purchase_orders.id = purchase_order_items.purchase_order_id").
		Where("purchase_order_items.business_id = ? AND purchase_orders.status = ?",
			businessId, PurchaseOrderStatusReceived).
		Find(&items).Error; err != nil {
		return nil, err
	}
	purchases := make(map[int][]purchaseLine)
	for _, item := range items {
		purchases[item.RawMaterialId] = append(purchases[item.RawMaterialId], purchaseLine{
			UnitId:    item.UnitId,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	return &costingSnapshot{
		recipes:     nodes,
		conversions: conversions,
		purchases:   purchases,
		strict:      config.StrictUnitConversions(),
		avgCosts:    make(map[int]decimal.Decimal),
	}, nil
}

// materialRequirements accumulates the base quantity of each raw material
// needed for `scale` batches of the recipe, descending into sub-recipes. A
// sub-recipe line needing quantityGrams of a child that yields childYield per
// batch scales the child's requirements by quantityGrams ÷ childYield.
func (s *costingSnapshot) materialRequirements(recipeId int, scale decimal.Decimal, depth int, acc map[int]decimal.Decimal) error {
	if depth > maxCostingDepth {
		return fmt.Errorf("recipe %d nests deeper than %d levels", recipeId, maxCostingDepth)
	}

	node, ok := s.recipes[recipeId]
	if !ok {
		return nil
	}

	for _, line := range node.Ingredients {
		factor, err := s.toBaseFactor(line.RawMaterialId, line.UnitId)
		if err != nil {
			return err
		}
		acc[line.RawMaterialId] = acc[line.RawMaterialId].Add(line.Quantity.Mul(factor).Mul(scale))
	}

	for _, line := range node.SubRecipes {
		_, childYield, err := s.costAndYield(line.SubRecipeId, depth+1)
		if err != nil {
			return err
		}
		if !childYield.IsPositive() {
			continue
		}
		childScale := scale.Mul(line.QuantityGrams).Div(childYield)
		if err := s.materialRequirements(line.SubRecipeId, childScale, depth+1, acc); err != nil {
			return err
		}
	}
	return nil
}

// RecipeMaterialRequirements returns raw material id to base quantity needed
// for `batches` of the recipe.
func RecipeMaterialRequirements(ctx context.Context, recipeId int, batches decimal.Decimal) (map[int]decimal.Decimal, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	snapshot, err := loadCostingSnapshot(ctx, businessId)
	if err != nil {
		return nil, err
	}
	acc := map[int]decimal.Decimal{}
	if err := snapshot.materialRequirements(recipeId, batches, 0, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// CostAndYield returns the ingredient cost and produced base quantity of one
// batch of the recipe.
func CostAndYield(ctx context.Context, recipeId int) (decimal.Decimal, decimal.Decimal, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	snapshot, err := loadCostingSnapshot(ctx, businessId)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return snapshot.costAndYield(recipeId, 0)
}

// ComputeRecipeCost returns just the batch cost.
func ComputeRecipeCost(ctx context.Context, recipeId int) (decimal.Decimal, error) {
	cost, _, err := CostAndYield(ctx, recipeId)
	return cost, err
}

// ComputeRecipeCosts costs every recipe of the business off one snapshot.
func ComputeRecipeCosts(ctx context.Context) (map[int]decimal.Decimal, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	snapshot, err := loadCostingSnapshot(ctx, businessId)
	if err != nil {
		return nil, err
	}
	costs := make(map[int]decimal.Decimal, len(snapshot.recipes))
	for id := range snapshot.recipes {
		cost, _, err := snapshot.costAndYield(id, 0)
		if err != nil {
			return nil, err
		}
		costs[id] = cost
	}
	return costs, nil
}
