package payment

import (
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/studio/core"
)

var (
	// custom validation tags & texts
	paymentMethodTag = "paymentmethod"

	positiveAmountTag  = "positiveamount"
	positiveAmountText = "{0} must be greater than 0"
)

// InitValidators registers the payment validation tags. core.InitValidators must be called first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	methods := make([]string, 0, len(Methods))
	for _, m := range Methods {
		methods = append(methods, string(m))
	}
	_ = validate.RegisterValidation(paymentMethodTag, paymentMethodValidation)
	core.RegisterCustomTranslation(
		validate, translator, paymentMethodTag,
		"{0} must be one of "+strings.Join(methods, ", "),
	)

	_ = validate.RegisterValidation(positiveAmountTag, positiveAmountValidation)
	core.RegisterCustomTranslation(validate, translator, positiveAmountTag, positiveAmountText)

	validate.RegisterStructValidation(submissionValidation, Submission{})
}

// NewValidator returns a validator knowing the core & payment tags.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate, translator
}

func paymentMethodValidation(fl validator.FieldLevel) bool {
	return Method(fl.Field().String()).IsValid()
}

func positiveAmountValidation(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case decimal.Decimal:
		return v.IsPositive()
	case float64:
		return v > 0
	default:
		return false
	}
}

// submissionValidation checks every charge amount, overrides included.
func submissionValidation(sl validator.StructLevel) {
	sub := sl.Current().Interface().(Submission)
	for i, c := range sub.Charges {
		if amount := c.Amount(); !amount.IsPositive() {
			sl.ReportError(amount, fmt.Sprintf("charges[%d].amount", i), "Amount", positiveAmountTag, "")
		}
	}
}

// ValidateRequest validates req & returns a KindValidation *Error listing every invalid field.
func ValidateRequest(validate *validator.Validate, translator ut.Translator, req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	flds, ok := core.TranslateErrors(err, translator)
	if !ok {
		return &Error{Kind: KindValidation, Tag: KindValidation.WireTag(), Err: err}
	}
	vErr := core.ValidationError{Fields: flds}
	return &Error{
		Kind:    KindValidation,
		Tag:     KindValidation.WireTag(),
		Message: vErr.Error(),
		Fields:  vErr.FieldMap(),
		Err:     &vErr,
	}
}
