package cqrs

import "github.com/kuztatygit/lemfi-qa-homework/shared/models"

type RegisterCommand struct {
	Request models.RegistrationRequest
}

type AddFundsCommand struct {
	UserID  int64
	Request models.FundingRequest
}

type UpdatePersonalDataCommand struct {
	UserID  int64
	Request models.PersonalDataRequest
}

type SignInCommand struct {
	Email    string
	Password string
}
