package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"gorm.io/gorm"
)

type User struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"not null;uniqueIndex:idx_user_name" json:"business_id"`
	Username   string    `gorm:"size:50;not null;uniqueIndex:idx_user_name" json:"username"`
	Password   string    `gorm:"size:100;not null" json:"-"`
	Name       string    `gorm:"size:100" json:"name"`
	Role       UserRole  `gorm:"type:varchar(20);not null;default:Cashier" json:"role"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username string   `json:"username" binding:"required"`
	Password string   `json:"password" binding:"required,min=6"`
	Name     string   `json:"name"`
	Role     UserRole `json:"role"`
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := utils.ValidateUnique[User](ctx, businessId, "username", input.Username, 0); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = UserRoleCashier
	}
	user := User{
		BusinessId: businessId,
		Username:   input.Username,
		Password:   string(hash),
		Name:       input.Name,
		Role:       role,
		IsActive:   utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Login checks the credentials against every business the username appears
// in and returns a signed token carrying the user and business identifiers.
func Login(ctx context.Context, input *LoginInput) (string, *User, error) {
	db := config.GetDB()
	var users []User
	if err := db.WithContext(ctx).
		Where("username = ? AND is_active = true", input.Username).
		Find(&users).Error; err != nil {
		return "", nil, err
	}

	for i := range users {
		if utils.ComparePassword(users[i].Password, input.Password) == nil {
			token, err := utils.JwtGenerate(users[i].ID, users[i].BusinessId, string(users[i].Role))
			if err != nil {
				return "", nil, err
			}
			return token, &users[i], nil
		}
	}
	return "", nil, errors.New("invalid username or password")
}

func ChangePassword(ctx context.Context, userId int, oldPassword string, newPassword string) error {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return err
	}

	user, err := utils.FetchModel[User](ctx, businessId, userId)
	if err != nil {
		return err
	}
	if err := utils.ComparePassword(user.Password, oldPassword); err != nil {
		return errors.New("old password is wrong")
	}
	if len(newPassword) < 6 {
		return errors.New("password must be at least 6 characters")
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}

	db := config.GetDB()
	return db.WithContext(ctx).Model(&user).Update("password", string(hash)).Error
}

func DeactivateUser(ctx context.Context, id int) (*User, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	user, err := utils.FetchModel[User](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&user).Update("is_active", false).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func GetUserById(ctx context.Context, id int) (*User, error) {
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

func GetUsers(ctx context.Context) ([]*User, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*User
	if err := db.WithContext(ctx).Where("business_id = ?", businessId).
		Order("username").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
