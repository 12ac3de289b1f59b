package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Recipe is a bill of materials for one batch of a dish or a preparation.
// The batch's weight is derived from its lines, not stored.
type Recipe struct {
	ID           int                 `gorm:"primary_key" json:"id"`
	BusinessId   string              `gorm:"index;not null" json:"business_id"`
	Name         string              `gorm:"size:100;not null" json:"name" binding:"required"`
	Note         string              `gorm:"size:255" json:"note"`
	RawMaterials []RecipeRawMaterial `json:"raw_materials,omitempty"`
	SubRecipes   []RecipeSubRecipe   `json:"sub_recipes,omitempty"`
	CreatedAt    time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type RecipeRawMaterial struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null" json:"business_id"`
	RecipeId      int             `gorm:"index;not null" json:"recipe_id"`
	RawMaterialId int             `gorm:"index;not null" json:"raw_material_id"`
	RawMaterial   *RawMaterial    `json:"raw_material,omitempty"`
	UnitId        int             `gorm:"not null" json:"unit_id"`
	Quantity      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
}

// RecipeSubRecipe quantities are in grams of the child recipe's yield.
type RecipeSubRecipe struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null" json:"business_id"`
	RecipeId      int             `gorm:"index;not null" json:"recipe_id"`
	SubRecipeId   int             `gorm:"index;not null" json:"sub_recipe_id"`
	SubRecipe     *Recipe         `json:"sub_recipe,omitempty"`
	QuantityGrams decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_grams"`
}

type NewRecipeRawMaterial struct {
	RawMaterialId int             `json:"raw_material_id" binding:"required"`
	UnitId        int             `json:"unit_id" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
}

type NewRecipeSubRecipe struct {
	SubRecipeId   int             `json:"sub_recipe_id" binding:"required"`
	QuantityGrams decimal.Decimal `json:"quantity_grams" binding:"required"`
}

type NewRecipe struct {
	Name         string                 `json:"name" binding:"required"`
	Note         string                 `json:"note"`
	RawMaterials []NewRecipeRawMaterial `json:"raw_materials"`
	SubRecipes   []NewRecipeSubRecipe   `json:"sub_recipes"`
}

func (input *NewRecipe) validate(ctx context.Context, businessId string, id int) error {
	if err := utils.ValidateUnique[Recipe](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	for _, line := range input.RawMaterials {
		if err := utils.ValidateResourceId[RawMaterial](ctx, businessId, line.RawMaterialId); err != nil {
			return fmt.Errorf("raw material %d not found", line.RawMaterialId)
		}
		if err := utils.ValidateResourceId[Unit](ctx, businessId, line.UnitId); err != nil {
			return fmt.Errorf("unit %d not found", line.UnitId)
		}
		if !line.Quantity.IsPositive() {
			return errors.New("ingredient quantity must be positive")
		}
	}
	for _, line := range input.SubRecipes {
		if line.SubRecipeId == id && id != 0 {
			return errors.New("recipe cannot contain itself")
		}
		if err := utils.ValidateResourceId[Recipe](ctx, businessId, line.SubRecipeId); err != nil {
			return fmt.Errorf("sub recipe %d not found", line.SubRecipeId)
		}
		if !line.QuantityGrams.IsPositive() {
			return errors.New("sub recipe quantity must be positive")
		}
	}
	return nil
}

// pathExists reports whether `to` is reachable from `from` over the
// sub-recipe edges. Iterative so a bad graph cannot blow the stack.
func pathExists(edges map[int][]int, from int, to int) bool {
	if from == to {
		return true
	}
	seen := map[int]bool{from: true}
	stack := []int{from}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range edges[node] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

func loadRecipeEdges(ctx context.Context, businessId string) (map[int][]int, error) {
	db := config.GetDB()
	var links []RecipeSubRecipe
	if err := db.WithContext(ctx).Where("business_id = ?", businessId).Find(&links).Error; err != nil {
		return nil, err
	}
	edges := make(map[int][]int, len(links))
	for _, link := range links {
		edges[link.RecipeId] = append(edges[link.RecipeId], link.SubRecipeId)
	}
	return edges, nil
}

// rejectCycles refuses sub-recipe links that would make recipeId reachable
// from one of its own children.
func rejectCycles(ctx context.Context, businessId string, recipeId int, subRecipes []NewRecipeSubRecipe) error {
	if config.DisableRecipeCycleCheck() || len(subRecipes) == 0 {
		return nil
	}
	edges, err := loadRecipeEdges(ctx, businessId)
	if err != nil {
		return err
	}
	for _, line := range subRecipes {
		if pathExists(edges, line.SubRecipeId, recipeId) {
			return fmt.Errorf("sub recipe %d would create a cycle", line.SubRecipeId)
		}
	}
	return nil
}

func CreateRecipe(ctx context.Context, input *NewRecipe) (*Recipe, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	recipe := Recipe{
		BusinessId: businessId,
		Name:       input.Name,
		Note:       input.Note,
	}
	for _, line := range input.RawMaterials {
		recipe.RawMaterials = append(recipe.RawMaterials, RecipeRawMaterial{
			BusinessId:    businessId,
			RawMaterialId: line.RawMaterialId,
			UnitId:        line.UnitId,
			Quantity:      line.Quantity,
		})
	}
	for _, line := range input.SubRecipes {
		recipe.SubRecipes = append(recipe.SubRecipes, RecipeSubRecipe{
			BusinessId:    businessId,
			SubRecipeId:   line.SubRecipeId,
			QuantityGrams: line.QuantityGrams,
		})
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&recipe).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

func UpdateRecipe(ctx context.Context, id int, input *NewRecipe) (*Recipe, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}
	if err := rejectCycles(ctx, businessId, id, input.SubRecipes); err != nil {
		return nil, err
	}

	recipe, err := utils.FetchModel[Recipe](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Model(&recipe).Updates(map[string]interface{}{
			"Name": input.Name,
			"Note": input.Note,
		}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Where("business_id = ? AND recipe_id = ?", businessId, id).
			Delete(&RecipeRawMaterial{}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Where("business_id = ? AND recipe_id = ?", businessId, id).
			Delete(&RecipeSubRecipe{}).Error; err != nil {
			return err
		}
		for _, line := range input.RawMaterials {
			if err := tx.WithContext(ctx).Create(&RecipeRawMaterial{
				BusinessId:    businessId,
				RecipeId:      id,
				RawMaterialId: line.RawMaterialId,
				UnitId:        line.UnitId,
				Quantity:      line.Quantity,
			}).Error; err != nil {
				return err
			}
		}
		for _, line := range input.SubRecipes {
			if err := tx.WithContext(ctx).Create(&RecipeSubRecipe{
				BusinessId:    businessId,
				RecipeId:      id,
				SubRecipeId:   line.SubRecipeId,
				QuantityGrams: line.QuantityGrams,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetRecipe(ctx, id)
}

func DeleteRecipe(ctx context.Context, id int) (*Recipe, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	recipe, err := utils.FetchModel[Recipe](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[RecipeSubRecipe](ctx, businessId, "sub_recipe_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used as sub recipe")
	}
	count, err = utils.ResourceCountWhere[MenuItem](ctx, businessId, "recipe_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by menu item")
	}

	db := config.GetDB()
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Where("business_id = ? AND recipe_id = ?", businessId, id).
			Delete(&RecipeRawMaterial{}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Where("business_id = ? AND recipe_id = ?", businessId, id).
			Delete(&RecipeSubRecipe{}).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).Delete(&recipe).Error
	})
	if err != nil {
		return nil, err
	}
	return recipe, nil
}

func GetRecipe(ctx context.Context, id int) (*Recipe, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Recipe](ctx, businessId, id,
		"RawMaterials", "RawMaterials.RawMaterial", "SubRecipes", "SubRecipes.SubRecipe")
}

func GetRecipes(ctx context.Context, name *string) ([]*Recipe, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*Recipe
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
