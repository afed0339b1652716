package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"

	"github.com/makingtools/rapidbites-sub001/internal/apierror"
	"github.com/makingtools/rapidbites-sub001/internal/dto"
	"github.com/makingtools/rapidbites-sub001/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	validate.RegisterStructValidation(countedAmountsRule, dto.CountedAmounts{})
}

// countedAmountsRule rejects sub-cent and out-of-range counts with the
// "money" tag. Negative counts pass.
func countedAmountsRule(sl validator.StructLevel) {
	c := sl.Current().Interface().(dto.CountedAmounts)
	for _, f := range []struct {
		name string
		v    decimal.Decimal
	}{{"Cash", c.Cash}, {"Card", c.Card}, {"Transfer", c.Transfer}, {"Other", c.Other}} {
		if !dto.ValidCountedAmount(f.v) {
			sl.ReportError(f.v, f.name, f.name, "money", "")
		}
	}
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeBadRequest, "invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeBadRequest, err.Error()))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError maps service errors onto status codes. The detail is the
// error text, except for storage failures whose cause stays in the log.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(apierror.CodeInvalidAmount, err.Error()))
	case errors.Is(err, service.ErrSessionAlreadyActive):
		c.JSON(http.StatusConflict, apierror.New(apierror.CodeSessionAlreadyActive, err.Error()))
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, apierror.New(apierror.CodeSessionNotFound, err.Error()))
	case errors.Is(err, service.ErrSessionAlreadyClosed):
		c.JSON(http.StatusConflict, apierror.New(apierror.CodeSessionAlreadyClosed, err.Error()))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, apierror.New(apierror.CodeUnauthorized, err.Error()))
	case errors.Is(err, service.ErrPersistence):
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, apierror.New(apierror.CodePersistence, service.ErrPersistence.Error()))
	default:
		// ErrorHandler logs it and writes the generic 500.
		_ = c.Error(err)
	}
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeBadRequest, "invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

func pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
