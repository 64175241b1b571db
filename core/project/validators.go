package project

import (
	"github.com/go-playground/validator/v10"

	"github.com/rmarban/approvio/core"
)

var (
	stageTag  = "stage"
	stageText = "invalid stage identifier"

	valStatusTag  = "valstatus"
	valStatusText = "invalid requirement validation status"

	stageStatusTag  = "stagestatus"
	stageStatusText = "invalid stage status"

	projStatusTag  = "projstatus"
	projStatusText = "invalid project status"
)

func init() {
	_ = core.Validate.RegisterValidation(stageTag, stageValidation)
	core.RegisterCustomTranslation(stageTag, stageText)

	_ = core.Validate.RegisterValidation(valStatusTag, valStatusValidation)
	core.RegisterCustomTranslation(valStatusTag, valStatusText)

	_ = core.Validate.RegisterValidation(stageStatusTag, stageStatusValidation)
	core.RegisterCustomTranslation(stageStatusTag, stageStatusText)

	_ = core.Validate.RegisterValidation(projStatusTag, projStatusValidation)
	core.RegisterCustomTranslation(projStatusTag, projStatusText)
}

func stageValidation(fl validator.FieldLevel) bool {
	return Stage(fl.Field().String()).IsValid()
}

func valStatusValidation(fl validator.FieldLevel) bool {
	return ValidationStatus(fl.Field().String()).IsValid()
}

func stageStatusValidation(fl validator.FieldLevel) bool {
	return StageStatus(fl.Field().String()).IsValid()
}

func projStatusValidation(fl validator.FieldLevel) bool {
	return ProjectStatus(fl.Field().String()).IsValid()
}
