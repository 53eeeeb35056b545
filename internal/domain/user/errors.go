package user

import "errors"

var (
	ErrNotFound           = errors.New("user not found")
	ErrDuplicate          = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("Invalid username or password")
	ErrInactive           = errors.New("Account is deactivated. Please contact an administrator.")
	ErrWrongPassword      = errors.New("Current password is incorrect")
	ErrSelfDelete         = errors.New("You cannot delete your own account")
	ErrReferenced         = errors.New("User has signed clinical records and cannot be deleted. Deactivate the account instead.")
)
