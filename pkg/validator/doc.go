// Package validator provides composable validation rules.
//
// A Rule pairs a check with the ValidationError reported when the check
// fails. Apply runs every rule and returns ValidationErrors listing all
// failures, so clients can highlight each offending field at once.
//
//	err := validator.Apply(
//		validator.ValidEmail("email", email),
//		validator.Password("password", password)...,
//	)
package validator
