package server

import (
	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/livechat/internal/models"
	mdw "github.com/nguyentranbao-ct/livechat/internal/server/middleware"
	"github.com/nguyentranbao-ct/livechat/internal/usecase"
)

type AuthController interface {
	Signup(c echo.Context, req signupRequest) (*mdw.Response, error)
	Login(c echo.Context, req loginRequest) (*models.LoginResponse, error)
	Logout(c echo.Context, req logoutRequest) (*messageResponse, error)
}

type authController struct {
	authUsecase usecase.AuthUsecase
}

func NewAuthController(authUsecase usecase.AuthUsecase) AuthController {
	return &authController{
		authUsecase: authUsecase,
	}
}

func (ac *authController) Signup(c echo.Context, req signupRequest) (*mdw.Response, error) {
	if _, err := ac.authUsecase.Signup(c.Request().Context(), req.SignupRequest); err != nil {
		return nil, err
	}
	return mdw.Created(messageResponse{Message: "User registered successfully"}), nil
}

func (ac *authController) Login(c echo.Context, req loginRequest) (*models.LoginResponse, error) {
	client := models.ClientInfo{
		UserAgent: req.ClientUA,
		IPAddress: c.RealIP(),
	}
	return ac.authUsecase.Login(c.Request().Context(), req.LoginRequest, client)
}

func (ac *authController) Logout(c echo.Context, req logoutRequest) (*messageResponse, error) {
	if err := ac.authUsecase.Logout(c.Request().Context(), req.Token); err != nil {
		return nil, err
	}
	return &messageResponse{Message: "Logged out successfully"}, nil
}
