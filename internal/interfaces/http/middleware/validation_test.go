package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khata/backend/internal/interfaces/http/dto"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func TestHandleValidationError(t *testing.T) {
	type recordPaymentInput struct {
		Amount      float64 `json:"amount" binding:"required,gt=0"`
		Description string  `json:"description" binding:"max=500"`
	}

	SetupValidator()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/payments", func(c *gin.Context) {
		var input recordPaymentInput
		if err := c.ShouldBindJSON(&input); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true})
	})

	t.Run("reports per-field details with json field names", func(t *testing.T) {
		body := strings.NewReader(`{"amount": -50}`)
		req := httptest.NewRequest(http.MethodPost, "/payments", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "Request validation failed", resp.Error.Message)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "amount", resp.Error.Details[0].Field)
	})

	t.Run("passes valid payment input through", func(t *testing.T) {
		body := strings.NewReader(`{"amount": 250.50, "description": "cash payment"}`)
		req := httptest.NewRequest(http.MethodPost, "/payments", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})
}

func TestValidationMessages(t *testing.T) {
	type input struct {
		Name   string  `validate:"required"`
		Phone  string  `validate:"min=7"`
		Note   string  `validate:"max=10"`
		ID     string  `validate:"uuid"`
		Kind   string  `validate:"oneof=BILL PAYMENT"`
		Amount float64 `validate:"gt=0"`
	}

	v := validator.New()
	err := v.Struct(input{Phone: "123", Note: "far too long a note", ID: "nope", Kind: "REFUND", Amount: -1})
	require.Error(t, err)

	messages := make(map[string]string)
	for _, e := range err.(validator.ValidationErrors) {
		messages[e.Field()] = validationMessage(e)
	}

	assert.Equal(t, "This field is required", messages["Name"])
	assert.Equal(t, "Must be at least 7 characters", messages["Phone"])
	assert.Equal(t, "Must be at most 10 characters", messages["Note"])
	assert.Equal(t, "Invalid UUID format", messages["ID"])
	assert.Equal(t, "Must be one of: BILL PAYMENT", messages["Kind"])
	assert.Equal(t, "Must be greater than 0", messages["Amount"])
}
