package validator

import (
	"context"
	"errors"
	"strings"

	"app/internal/usecase"
)

// 入力が不正
var ErrInvalidInput = errors.New("invalid input")

// usernameの最大長（DB側のvarchar(100)に合わせる）
const maxUsernameLen = 100

// パスワード最低文字数
const minPasswordLen = 8

type authValidator struct{}

// Usecaseは interface を依存注入
func NewAuthValidator() usecase.AuthValidator {
	return &authValidator{}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, username string, password string) error {
	username = strings.TrimSpace(username)

	// 必須チェック
	if username == "" || password == "" {
		return ErrInvalidInput
	}

	if len(username) > maxUsernameLen {
		return ErrInvalidInput
	}

	// パスワード最低文字数
	if len(password) < minPasswordLen {
		return ErrInvalidInput
	}

	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, username string, password string) error {
	username = strings.TrimSpace(username)

	// 必須チェック
	if username == "" || password == "" {
		return ErrInvalidInput
	}

	return nil
}
