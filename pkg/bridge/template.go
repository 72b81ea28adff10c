package bridge

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TemplateContext 请求头模板上下文
type TemplateContext struct {
	RequestID string
	Body      string
	AuthToken string
}

var exprPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// RenderTemplate replaces {{var}} and {{func(arg, ...)}} expressions.
//
// Variables: timestamp, timestamp_ms, nonce, request_id, body, auth_token.
// Functions: hmac_sha256(key, data), sha256(data), base64(data), upper(s), lower(s).
// Arguments are variables or quoted literals joined with +.
func RenderTemplate(tmpl string, tc *TemplateContext) string {
	now := time.Now()
	vars := map[string]string{
		"timestamp":    strconv.FormatInt(now.Unix(), 10),
		"timestamp_ms": strconv.FormatInt(now.UnixMilli(), 10),
		"nonce":        strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		"request_id":   tc.RequestID,
		"body":         tc.Body,
		"auth_token":   tc.AuthToken,
	}

	return exprPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		expr := exprPattern.FindStringSubmatch(m)[1]
		return evaluate(expr, vars)
	})
}

func evaluate(expr string, vars map[string]string) string {
	open := strings.Index(expr, "(")
	if open > 0 && strings.HasSuffix(expr, ")") {
		name := strings.TrimSpace(expr[:open])
		var args []string
		for _, a := range strings.Split(expr[open+1:len(expr)-1], ",") {
			args = append(args, resolveArg(strings.TrimSpace(a), vars))
		}
		return call(name, args)
	}
	return vars[expr]
}

func resolveArg(arg string, vars map[string]string) string {
	var sb strings.Builder
	for _, part := range strings.Split(arg, "+") {
		part = strings.TrimSpace(part)
		if len(part) >= 2 && (part[0] == '"' || part[0] == '\'') && part[len(part)-1] == part[0] {
			sb.WriteString(part[1 : len(part)-1])
		} else if v, ok := vars[part]; ok {
			sb.WriteString(v)
		} else {
			sb.WriteString(part)
		}
	}
	return sb.String()
}

func call(name string, args []string) string {
	switch name {
	case "hmac_sha256":
		if len(args) < 2 {
			return ""
		}
		mac := hmac.New(sha256.New, []byte(args[0]))
		mac.Write([]byte(args[1]))
		return hex.EncodeToString(mac.Sum(nil))
	case "sha256":
		if len(args) < 1 {
			return ""
		}
		h := sha256.Sum256([]byte(args[0]))
		return hex.EncodeToString(h[:])
	case "base64":
		if len(args) < 1 {
			return ""
		}
		return base64.StdEncoding.EncodeToString([]byte(args[0]))
	case "upper":
		if len(args) < 1 {
			return ""
		}
		return strings.ToUpper(args[0])
	case "lower":
		if len(args) < 1 {
			return ""
		}
		return strings.ToLower(args[0])
	default:
		return ""
	}
}
