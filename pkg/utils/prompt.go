package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"

	"github.com/picogrid/descent-simulations/pkg/simulation"
)

// EnvPrefix prefixes the environment variables that override parameters
const EnvPrefix = "DESCENT_"

// keepScenario is the select option that leaves a parameter unset
const keepScenario = "(scenario value)"

// SkipPrompts reports whether prompts are disabled for CI and automation
func SkipPrompts() bool {
	return os.Getenv(EnvPrefix+"SKIP_PROMPTS") == "true"
}

// EnvKey returns the environment variable overriding a parameter
func EnvKey(param string) string {
	return EnvPrefix + strings.ToUpper(param)
}

// PromptForParameters prompts the user for simulation parameters. With
// DESCENT_SKIP_PROMPTS=true values come from DESCENT_<NAME> variables and
// defaults instead.
func PromptForParameters(params []simulation.Parameter) (map[string]interface{}, error) {
	result := make(map[string]interface{})

	for _, param := range params {
		value, err := promptForParameter(param)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", param.Name, err)
		}
		if value != nil {
			result[param.Name] = value
		}
	}

	return result, nil
}

// ResolveParameters fills parameters without prompting. Parameters with
// neither an environment value nor a default are left out, unless required.
func ResolveParameters(params []simulation.Parameter) (map[string]interface{}, error) {
	result := make(map[string]interface{})
	for _, param := range params {
		value, err := resolveParameter(param)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", param.Name, err)
		}
		if value != nil {
			result[param.Name] = value
		}
	}
	return result, nil
}

func resolveParameter(param simulation.Parameter) (interface{}, error) {
	if envValue := os.Getenv(EnvKey(param.Name)); envValue != "" {
		return ParseValue(envValue, param)
	}
	if param.Default != nil {
		return Coerce(param.Default, param)
	}
	if param.Required {
		return nil, fmt.Errorf("required parameter %s not provided and no default available", param.Name)
	}
	return nil, nil
}

// promptForParameter prompts for a single parameter
func promptForParameter(param simulation.Parameter) (interface{}, error) {
	if SkipPrompts() {
		return resolveParameter(param)
	}

	// an environment value becomes the suggested default
	if envValue := os.Getenv(EnvKey(param.Name)); envValue != "" {
		if parsed, err := ParseValue(envValue, param); err == nil {
			param.Default = parsed
		}
	}

	switch param.Type {
	case "integer":
		return promptInteger(param)
	case "float":
		return promptFloat(param)
	case "string":
		return promptString(param)
	case "boolean":
		return promptBoolean(param)
	case "duration":
		return promptDuration(param)
	default:
		return nil, fmt.Errorf("unsupported parameter type: %s", param.Type)
	}
}

// ParseValue parses a textual value according to the parameter type and
// checks it against the parameter's range and options
func ParseValue(value string, param simulation.Parameter) (interface{}, error) {
	var (
		parsed interface{}
		err    error
	)
	switch param.Type {
	case "integer":
		parsed, err = strconv.Atoi(value)
	case "float":
		parsed, err = strconv.ParseFloat(value, 64)
	case "string":
		parsed = value
	case "boolean":
		parsed, err = strconv.ParseBool(value)
	case "duration":
		parsed, err = time.ParseDuration(value)
	default:
		return nil, fmt.Errorf("unsupported parameter type: %s", param.Type)
	}
	if err != nil {
		return nil, err
	}
	return parsed, checkParameter(parsed, param)
}

// Coerce converts a value decoded from YAML into the parameter's Go type
func Coerce(v interface{}, param simulation.Parameter) (interface{}, error) {
	switch param.Type {
	case "integer":
		if f, ok := v.(float64); ok {
			v = int(f)
		}
	case "float":
		if i, ok := v.(int); ok {
			v = float64(i)
		}
	case "duration":
		if s, ok := v.(string); ok {
			d, err := time.ParseDuration(s)
			if err != nil {
				return nil, err
			}
			v = d
		}
	case "string":
		if _, ok := v.(string); !ok {
			v = fmt.Sprint(v)
		}
	}
	return v, checkParameter(v, param)
}

func checkParameter(v interface{}, param simulation.Parameter) error {
	switch val := v.(type) {
	case int:
		if param.Min != nil && val < toInt(param.Min) {
			return fmt.Errorf("value must be at least %d", toInt(param.Min))
		}
		if param.Max != nil && val > toInt(param.Max) {
			return fmt.Errorf("value must be at most %d", toInt(param.Max))
		}
	case float64:
		if param.Min != nil && val < toFloat64(param.Min) {
			return fmt.Errorf("value must be at least %g", toFloat64(param.Min))
		}
		if param.Max != nil && val > toFloat64(param.Max) {
			return fmt.Errorf("value must be at most %g", toFloat64(param.Max))
		}
	case string:
		if len(param.Options) == 0 {
			return nil
		}
		for _, o := range param.Options {
			if o == val {
				return nil
			}
		}
		return fmt.Errorf("value must be one of %s", strings.Join(param.Options, ", "))
	}
	return nil
}

func promptInteger(param simulation.Parameter) (interface{}, error) {
	defaultStr := ""
	if param.Default != nil {
		defaultStr = strconv.Itoa(toInt(param.Default))
	}
	return promptInput(param, param.Description, defaultStr, "invalid integer")
}

func promptFloat(param simulation.Parameter) (interface{}, error) {
	defaultStr := ""
	if param.Default != nil {
		defaultStr = fmt.Sprintf("%v", param.Default)
	}
	return promptInput(param, param.Description, defaultStr, "invalid number")
}

// optional reports whether an empty answer leaves the parameter out
func optional(param simulation.Parameter) bool {
	return !param.Required && param.Default == nil
}

// promptInput asks for a typed value. An empty answer to an optional
// parameter returns nil.
func promptInput(param simulation.Parameter, message, defaultStr, invalid string) (interface{}, error) {
	if optional(param) {
		message += " (empty keeps the scenario value)"
	}
	prompt := &survey.Input{
		Message: message,
		Default: defaultStr,
	}

	validate := func(val interface{}) error {
		str, _ := val.(string)
		if str == "" {
			if optional(param) {
				return nil
			}
			return fmt.Errorf("a value is required")
		}
		if _, err := ParseValue(str, param); err != nil {
			return fmt.Errorf("%s: %w", invalid, err)
		}
		return nil
	}

	var result string
	if err := survey.AskOne(prompt, &result, survey.WithValidator(validate)); err != nil {
		return nil, err
	}
	if result == "" {
		return nil, nil
	}

	value, err := ParseValue(result, param)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", invalid, err)
	}
	return value, nil
}

func promptString(param simulation.Parameter) (string, error) {
	defaultStr := ""
	if param.Default != nil {
		defaultStr = fmt.Sprintf("%v", param.Default)
	}

	if len(param.Options) > 0 {
		options := param.Options
		if optional(param) {
			options = append([]string{keepScenario}, options...)
			defaultStr = keepScenario
		}
		prompt := &survey.Select{
			Message: param.Description,
			Options: options,
			Default: defaultStr,
		}

		var result string
		if err := survey.AskOne(prompt, &result); err != nil {
			return "", err
		}
		if result == keepScenario {
			return "", nil
		}
		return result, nil
	}

	prompt := &survey.Input{
		Message: param.Description,
		Default: defaultStr,
	}

	var result string
	var validators []survey.Validator
	if param.Required {
		validators = append(validators, survey.Required)
	}

	if err := survey.AskOne(prompt, &result, survey.WithValidator(survey.ComposeValidators(validators...))); err != nil {
		return "", err
	}

	return result, nil
}

func promptBoolean(param simulation.Parameter) (bool, error) {
	defaultBool := false
	if param.Default != nil {
		switch v := param.Default.(type) {
		case bool:
			defaultBool = v
		case string:
			defaultBool = v == "true" || v == "yes" || v == "1"
		}
	}

	return Confirm(param.Description, defaultBool)
}

func promptDuration(param simulation.Parameter) (interface{}, error) {
	defaultStr := ""
	if param.Default != nil {
		defaultStr = fmt.Sprintf("%v", param.Default)
	}
	return promptInput(param, param.Description+" (e.g., 5m, 1h30m, 30s)", defaultStr,
		"invalid duration format (use formats like 5m, 1h30m, 30s)")
}

// Confirm asks a yes/no question
func Confirm(message string, def bool) (bool, error) {
	var result bool
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &result); err != nil {
		return false, err
	}
	return result, nil
}

// SelectDataset lets the user pick one of the registered datasets. The
// first entry is "(wind layers)" for running without a grid.
func SelectDataset(names []string, selected string) (string, error) {
	const none = "(wind layers)"
	options := append([]string{none}, names...)
	def := none
	for _, n := range names {
		if n == selected {
			def = n
		}
	}

	var result string
	if err := survey.AskOne(&survey.Select{
		Message: "Select atmospheric dataset:",
		Options: options,
		Default: def,
	}, &result); err != nil {
		return "", err
	}
	if result == none {
		return "", nil
	}
	return result, nil
}

// Helper functions
func toInt(v interface{}) int {
	switch val := v.(type) {
	case int:
		return val
	case float64:
		return int(val)
	case string:
		i, _ := strconv.Atoi(val)
		return i
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	default:
		return 0
	}
}
