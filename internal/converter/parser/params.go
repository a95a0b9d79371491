package parser

import (
	"strings"
)

// ParseParameters extracts the parenthesised parameter list of a routine
// signature. Fragments that cannot be parsed degrade to a Variant
// parameter named after their first token.
func (p *Parser) ParseParameters(signature string) []Parameter {
	params := []Parameter{}

	open := strings.IndexByte(signature, '(')
	if open < 0 {
		return params
	}
	end := matchingParen(signature, open)
	if end < 0 {
		end = len(signature)
	}
	inner := strings.TrimSpace(signature[open+1 : end])
	if inner == "" {
		return params
	}

	for _, frag := range SplitTopLevel(inner, ',') {
		frag = strings.TrimSpace(frag)
		if frag == "" {
			continue
		}
		param, ok := ParseParameter(frag)
		if !ok {
			p.log().Warn("failed to parse parameter, using default", "fragment", frag)
			param = degradedParameter(frag)
		}
		params = append(params, param)
	}
	return params
}

// ParseParameters parses a signature's parameter list with the default parser.
func ParseParameters(signature string) []Parameter {
	return defaultParser.ParseParameters(signature)
}

// ParseParameter parses one parameter fragment such as
// "Optional ByVal x As Integer = 0". The boolean is false when the
// fragment does not have the shape of a parameter.
func ParseParameter(fragment string) (Parameter, bool) {
	param := Parameter{Type: DefaultType, ByRef: true}

	text := strings.TrimSpace(fragment)
	for {
		word, rest, _ := strings.Cut(text, " ")
		switch strings.ToLower(word) {
		case "optional":
			param.Optional = true
		case "byval":
			param.ByRef = false
		case "byref":
			param.ByRef = true
		case "paramarray":
			param.ParamArray = true
		default:
			rest = ""
		}
		if rest == "" {
			break
		}
		text = strings.TrimSpace(rest)
	}

	if eq := IndexTopLevel(text, '='); eq >= 0 {
		param.Default = strings.TrimSpace(text[eq+1:])
		text = strings.TrimSpace(text[:eq])
	}

	parts := asSplitPattern.Split(text, 2)
	name := strings.TrimSpace(parts[0])
	name = strings.TrimSpace(strings.TrimSuffix(name, "()"))
	if len(parts) == 2 {
		if typ := strings.TrimSpace(parts[1]); typ != "" {
			param.Type = typ
		}
	}

	if !identPattern.MatchString(name) {
		return param, false
	}
	param.Name = name
	return param, true
}

func degradedParameter(fragment string) Parameter {
	name := "unknown"
	if fields := strings.Fields(fragment); len(fields) > 0 {
		name = fields[0]
	}
	return Parameter{Name: name, Type: DefaultType, ByRef: true}
}
