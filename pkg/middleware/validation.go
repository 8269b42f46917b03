package middleware

import (
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/wms-platform/fulfillment-service/pkg/errors"
)

var validatorInit sync.Once

// Warehouse identifier formats. Order and worker IDs accept any suffix the
// upstream systems mint; SKUs and bins follow the warehouse labelling scheme.
var (
	orderIDRegex    = regexp.MustCompile(`^ORD-[A-Za-z0-9-]+$`)
	workerIDRegex   = regexp.MustCompile(`^WRK-[A-Za-z0-9-]+$`)
	skuRegex        = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{2,49}$`)
	binRegex        = regexp.MustCompile(`^[A-Z]{1,2}-\d{2}-\d{2}(-[A-Z0-9]+)?$`)
	carrierRegex    = regexp.MustCompile(`^(UPS|FEDEX|USPS|DHL|ONTRAC)$`)
	safeStringRegex = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.,!?@#$%&*()+=:;'"<>\/\[\]{}|\\~\x60]+$`)
)

// InitValidator registers the warehouse field formats on Gin's binding
// validator and switches error reporting to JSON field names.
func InitValidator() {
	validatorInit.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonTagName)
		_ = v.RegisterValidation("order_id", matches(orderIDRegex))
		_ = v.RegisterValidation("worker_id", matches(workerIDRegex))
		_ = v.RegisterValidation("sku", matches(skuRegex))
		_ = v.RegisterValidation("bin", matches(binRegex))
		_ = v.RegisterValidation("carrier_code", matches(carrierRegex))
		_ = v.RegisterValidation("tracking_number", validateTrackingNumber)
		_ = v.RegisterValidation("shipping_method", validateShippingMethod)
		_ = v.RegisterValidation("safe_string", matches(safeStringRegex))
	})
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func jsonTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return fld.Name
	}
	return name
}

func validateTrackingNumber(fl validator.FieldLevel) bool {
	n := len(fl.Field().String())
	return n >= 8 && n <= 30
}

func validateShippingMethod(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "GROUND", "EXPRESS", "OVERNIGHT", "ECONOMY":
		return true
	}
	return false
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "uuid":
		return "must be a valid UUID"
	case "order_id":
		return "must be a valid order ID (format: ORD-xxxx)"
	case "worker_id":
		return "must be a valid worker ID (format: WRK-xxxx)"
	case "sku":
		return "must be a valid SKU (uppercase alphanumeric with dashes)"
	case "bin":
		return "must be a valid bin location (format: A-01-02-B1)"
	case "carrier_code":
		return "must be a valid carrier code (UPS, FEDEX, USPS, DHL, ONTRAC)"
	case "tracking_number":
		return "must be a valid tracking number (8-30 characters)"
	case "shipping_method":
		return "must be one of: GROUND, EXPRESS, OVERNIGHT, ECONOMY"
	case "safe_string":
		return "contains invalid characters"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

func validationFields(errs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(errs))
	for _, e := range errs {
		fields[e.Field()] = fieldMessage(e)
	}
	return fields
}

// BindAndValidate decodes the JSON body into obj and translates validator
// failures into a field-keyed validation error.
func BindAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	if err := c.ShouldBindJSON(obj); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			return errors.ErrValidationWithFields("validation failed", validationFields(verrs))
		}
		return errors.ErrBadRequest("invalid request body: " + err.Error())
	}
	return nil
}

// InputSanitizer strips null bytes and surrounding whitespace from query
// parameter values before handlers read them.
func InputSanitizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Request.URL.Query()
		for key, values := range query {
			for i, v := range values {
				v = strings.ReplaceAll(v, "\x00", "")
				values[i] = strings.TrimSpace(v)
			}
			query[key] = values
		}
		c.Request.URL.RawQuery = query.Encode()
		c.Next()
	}
}

// ContentType rejects mutating requests whose body is not JSON. Requests
// with an empty body pass, several transitions take no payload.
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if c.Request.ContentLength > 0 && !strings.HasPrefix(c.GetHeader("Content-Type"), "application/json") {
				AbortWithAppError(c, &errors.AppError{
					Code:       "INVALID_CONTENT_TYPE",
					Message:    "Content-Type must be application/json",
					HTTPStatus: http.StatusUnsupportedMediaType,
				})
				return
			}
		}
		c.Next()
	}
}
