package bot

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	ErrUsage         = errors.New("usage")
	ErrInvalidStatus = errors.New("invalid status")
)

var validate = validator.New()

type addShipArgs struct {
	Code     string `validate:"required"`
	Provider string `validate:"required"`
}

type updateArgs struct {
	Code   string `validate:"required"`
	Status string `validate:"required,oneof=true false"`
}

func (a updateArgs) Delivered() bool {
	return a.Status == "true"
}

type codeArgs struct {
	Code string `validate:"required"`
}

type addProviderArgs struct {
	Name string `validate:"required"`
	URL  string `validate:"required"`
}

// parseArgs splits payload on whitespace, lets bind map positions onto T and
// validates the result. Errors are ErrUsage or ErrInvalidStatus.
func parseArgs[T any](payload string, bind func(args []string) T) (T, error) {
	out := bind(strings.Fields(payload))
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Tag() == "oneof" {
					return out, ErrInvalidStatus
				}
			}
		}
		return out, ErrUsage
	}
	return out, nil
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func bindAddShip(args []string) addShipArgs {
	return addShipArgs{Code: arg(args, 0), Provider: strings.ToUpper(arg(args, 1))}
}

func bindUpdate(args []string) updateArgs {
	return updateArgs{Code: arg(args, 0), Status: strings.ToLower(arg(args, 1))}
}

func bindCode(args []string) codeArgs {
	return codeArgs{Code: arg(args, 0)}
}

func bindAddProvider(args []string) addProviderArgs {
	return addProviderArgs{Name: arg(args, 0), URL: arg(args, 1)}
}
