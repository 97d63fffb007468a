package service

import (
	"context"
	"net/http"

	"github.com/hitoshi/researchtracker/internal/model"
)

// AuthService は /auth 配下のAPI。
type AuthService struct {
	r Requester
}

// Signup はユーザーを登録し、発行されたトークンを返す。
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (model.AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return model.AuthResponse{}, err
	}
	var res model.AuthResponse
	if err := s.r.Do(ctx, http.MethodPost, "/auth/signup", req, &res); err != nil {
		return model.AuthResponse{}, err
	}
	return res, nil
}

// Login は認証してトークンを返す。
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (model.AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return model.AuthResponse{}, err
	}
	var res model.AuthResponse
	if err := s.r.Do(ctx, http.MethodPost, "/auth/login", req, &res); err != nil {
		return model.AuthResponse{}, err
	}
	return res, nil
}
