package dto

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// PlaceBetRequest é o corpo de POST /v1/bets; amount em decimal ("12.50")
type PlaceBetRequest struct {
	UserID    string `json:"user_id" validate:"required,max=64"`
	Game      string `json:"game" validate:"required"`
	RoundID   string `json:"round_id" validate:"required"`
	Selection string `json:"selection" validate:"required"`
	Amount    string `json:"amount" validate:"required,numeric"`
}

func (p *PlaceBetRequest) Validate() error { return validate.Struct(p) }

// ResolveRequest é o corpo de POST /admin/rounds/{id}/resolve
type ResolveRequest struct {
	Outcome string `json:"outcome" validate:"required"`
}

func (r *ResolveRequest) Validate() error { return validate.Struct(r) }

// AdjustRequest é o corpo de POST /admin/users/{id}/adjust; amount negativo retira saldo
type AdjustRequest struct {
	Amount string `json:"amount" validate:"required,numeric"`
	Ref    string `json:"ref" validate:"omitempty,max=128"`
	Note   string `json:"note" validate:"omitempty,max=256"`
}

func (a *AdjustRequest) Validate() error { return validate.Struct(a) }
