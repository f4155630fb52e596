package controlapi

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rafaeljc/verdandi/internal/engine"
	"github.com/rafaeljc/verdandi/internal/registry"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// flagKeyRegex constrains keys to a URL- and metric-label-safe alphabet.
var flagKeyRegex = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ConditionRequest is the wire shape of a targeting condition.
type ConditionRequest struct {
	Type     string `json:"type" validate:"required,oneof=user_id user_type location subscription custom"`
	Operator string `json:"operator" validate:"required,oneof=equals contains in not_in greater_than less_than"`
	Value    any    `json:"value" validate:"required"`
}

// VariantRequest is the wire shape of an experiment variant.
type VariantRequest struct {
	Key        string         `json:"key" validate:"required,min=1,max=100"`
	Name       string         `json:"name" validate:"required,min=1,max=255"`
	Percentage int            `json:"percentage" validate:"min=0,max=100"`
	Config     map[string]any `json:"config"`
}

// CreateFlagRequest is the payload of POST /api/v1/flags.
type CreateFlagRequest struct {
	Key               string             `json:"key" validate:"required,min=1,max=100"`
	Name              string             `json:"name" validate:"required,min=1,max=255"`
	Description       string             `json:"description" validate:"max=1000"`
	Enabled           bool               `json:"enabled"`
	RolloutPercentage int                `json:"rollout_percentage" validate:"min=0,max=100"`
	Conditions        []ConditionRequest `json:"conditions" validate:"dive"`
	Variants          []VariantRequest   `json:"variants" validate:"dive"`
	Environment       string             `json:"environment" validate:"omitempty,oneof=development staging production"`
}

// Sanitize trims surrounding whitespace from free-text fields.
func (r *CreateFlagRequest) Sanitize() {
	r.Key = strings.TrimSpace(r.Key)
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.Environment = strings.TrimSpace(r.Environment)
}

// Validate runs struct validation plus the checks tags cannot express.
func (r *CreateFlagRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if !flagKeyRegex.MatchString(r.Key) {
		return fmt.Errorf("key must contain only lowercase letters, digits, hyphens and underscores")
	}
	for i, v := range r.Variants {
		if !flagKeyRegex.MatchString(v.Key) {
			return fmt.Errorf("variants[%d].key must contain only lowercase letters, digits, hyphens and underscores", i)
		}
	}
	if sum := variantPercentageSum(r.Variants); sum > 100 {
		return fmt.Errorf("variant percentages sum to %d, must not exceed 100", sum)
	}
	return nil
}

// ToFlag converts the request into the engine's domain type.
func (r *CreateFlagRequest) ToFlag() engine.Flag {
	env := engine.Environment(r.Environment)
	if r.Environment == "" {
		env = engine.EnvDevelopment
	}
	return engine.Flag{
		Key:               r.Key,
		Name:              r.Name,
		Description:       r.Description,
		Enabled:           r.Enabled,
		RolloutPercentage: r.RolloutPercentage,
		Conditions:        toConditions(r.Conditions),
		Variants:          toVariants(r.Variants),
		Environment:       env,
	}
}

// UpdateFlagRequest is the payload of PATCH /api/v1/flags/{key}. Pointer
// fields distinguish "absent" from "set to zero value".
type UpdateFlagRequest struct {
	Name              *string             `json:"name" validate:"omitempty,min=1,max=255"`
	Description       *string             `json:"description" validate:"omitempty,max=1000"`
	Enabled           *bool               `json:"enabled"`
	RolloutPercentage *int                `json:"rollout_percentage" validate:"omitempty,min=0,max=100"`
	Conditions        *[]ConditionRequest `json:"conditions" validate:"omitempty,dive"`
	Variants          *[]VariantRequest   `json:"variants" validate:"omitempty,dive"`
	Environment       *string             `json:"environment" validate:"omitempty,oneof=development staging production"`
}

// Validate runs struct validation plus variant checks when variants are
// being replaced.
func (r *UpdateFlagRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.Variants != nil {
		for i, v := range *r.Variants {
			if !flagKeyRegex.MatchString(v.Key) {
				return fmt.Errorf("variants[%d].key must contain only lowercase letters, digits, hyphens and underscores", i)
			}
		}
		if sum := variantPercentageSum(*r.Variants); sum > 100 {
			return fmt.Errorf("variant percentages sum to %d, must not exceed 100", sum)
		}
	}
	return nil
}

// ToPatch converts the request into a registry patch.
func (r *UpdateFlagRequest) ToPatch() registry.Patch {
	p := registry.Patch{
		Name:              r.Name,
		Description:       r.Description,
		Enabled:           r.Enabled,
		RolloutPercentage: r.RolloutPercentage,
	}
	if r.Conditions != nil {
		conditions := toConditions(*r.Conditions)
		p.Conditions = &conditions
	}
	if r.Variants != nil {
		variants := toVariants(*r.Variants)
		p.Variants = &variants
	}
	if r.Environment != nil {
		env := engine.Environment(*r.Environment)
		p.Environment = &env
	}
	return p
}

// EvaluateRequest is the payload of POST /api/v1/evaluate/{key}: the user
// context the caller evaluates against.
type EvaluateRequest struct {
	UserID           string         `json:"user_id"`
	UserType         string         `json:"user_type"`
	Location         string         `json:"location"`
	SubscriptionTier string         `json:"subscription_tier"`
	CustomAttributes map[string]any `json:"custom_attributes"`
}

// ToUserContext converts the request into the engine's domain type.
func (r *EvaluateRequest) ToUserContext() engine.UserContext {
	return engine.UserContext{
		UserID:           r.UserID,
		UserType:         r.UserType,
		Location:         r.Location,
		SubscriptionTier: r.SubscriptionTier,
		CustomAttributes: r.CustomAttributes,
	}
}

// EvaluateResponse carries a single evaluation decision.
type EvaluateResponse struct {
	FlagKey string         `json:"flag_key"`
	Enabled bool           `json:"enabled"`
	Reason  string         `json:"reason"`
	Variant string         `json:"variant,omitempty"`
	Config  map[string]any `json:"config,omitempty"`
}

// FlagResponse is the wire shape of a flag definition.
type FlagResponse struct {
	ID                string             `json:"id"`
	Key               string             `json:"key"`
	Name              string             `json:"name"`
	Description       string             `json:"description"`
	Enabled           bool               `json:"enabled"`
	RolloutPercentage int                `json:"rollout_percentage"`
	Conditions        []ConditionRequest `json:"conditions"`
	Variants          []VariantRequest   `json:"variants"`
	Environment       string             `json:"environment"`
	CreatedAt         string             `json:"created_at"`
	UpdatedAt         string             `json:"updated_at"`
}

// NewFlagResponse converts a domain flag into its wire shape.
func NewFlagResponse(f *engine.Flag) FlagResponse {
	return FlagResponse{
		ID:                f.ID,
		Key:               f.Key,
		Name:              f.Name,
		Description:       f.Description,
		Enabled:           f.Enabled,
		RolloutPercentage: f.RolloutPercentage,
		Conditions:        fromConditions(f.Conditions),
		Variants:          fromVariants(f.Variants),
		Environment:       string(f.Environment),
		CreatedAt:         f.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:         f.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// PaginatedResponse wraps list results with pagination metadata.
type PaginatedResponse struct {
	Data       []FlagResponse `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// Pagination holds the page window actually served.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable code and human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

func variantPercentageSum(variants []VariantRequest) int {
	sum := 0
	for _, v := range variants {
		sum += v.Percentage
	}
	return sum
}

func toConditions(in []ConditionRequest) []engine.Condition {
	if in == nil {
		return nil
	}
	out := make([]engine.Condition, len(in))
	for i, c := range in {
		out[i] = engine.Condition{
			Type:     engine.ConditionType(c.Type),
			Operator: engine.Operator(c.Operator),
			Value:    c.Value,
		}
	}
	return out
}

func fromConditions(in []engine.Condition) []ConditionRequest {
	out := make([]ConditionRequest, len(in))
	for i, c := range in {
		out[i] = ConditionRequest{
			Type:     string(c.Type),
			Operator: string(c.Operator),
			Value:    c.Value,
		}
	}
	return out
}

func toVariants(in []VariantRequest) []engine.Variant {
	if in == nil {
		return nil
	}
	out := make([]engine.Variant, len(in))
	for i, v := range in {
		out[i] = engine.Variant{
			Key:        v.Key,
			Name:       v.Name,
			Percentage: v.Percentage,
			Config:     v.Config,
		}
	}
	return out
}

func fromVariants(in []engine.Variant) []VariantRequest {
	out := make([]VariantRequest, len(in))
	for i, v := range in {
		out[i] = VariantRequest{
			Key:        v.Key,
			Name:       v.Name,
			Percentage: v.Percentage,
			Config:     v.Config,
		}
	}
	return out
}
