// Package validate performs a static lexical pre-check of a script
// before it is handed to the execution engine. It strips string and
// comment spans and then matches the remaining code against a fixed
// table of disallowed lexical categories.
//
// This is defense in depth, not a security boundary: pattern blocklists
// are incomplete against determined obfuscation. The authoritative
// boundary is the sandbox runtime plus the host's timeout-triggered
// hard restart. The validator exists to reject obviously hostile
// scripts before paying the cost of dispatching them.
package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Category names the lexical class a blocked construct belongs to.
type Category string

const (
	CategoryNetwork       Category = "network"
	CategoryStorage       Category = "storage"
	CategoryWorker        Category = "worker"
	CategoryMessaging     Category = "messaging"
	CategoryDynamicCode   Category = "dynamic-code"
	CategoryGlobalEscape  Category = "global-escape"
	CategoryReflection    Category = "reflection"
	CategoryThisRebinding Category = "this-rebinding"
	CategoryObfuscation   Category = "obfuscation"
)

// Reason is a single validation finding with a best-effort line number
// (1-based; the match position in the stripped source).
type Reason struct {
	Category Category `json:"category"`
	Message  string   `json:"message"`
	Line     int      `json:"line"`
}

// Verdict is the result of validating one script.
type Verdict struct {
	Valid   bool     `json:"valid"`
	Reasons []Reason `json:"reasons,omitempty"`
}

type rule struct {
	category Category
	pattern  *regexp.Regexp
	message  string
}

// The rule table. Patterns run against masked source, so identifiers
// appearing inside strings or comments never match. Several patterns
// guard against property-access false positives (e.g. `a.top`) by
// requiring the name not to follow a `.`.
var rules = []rule{
	// Ambient I/O: network.
	{CategoryNetwork, regexp.MustCompile(`\bfetch\s*\(`), "network access (fetch) is not available to scripts"},
	{CategoryNetwork, regexp.MustCompile(`\bXMLHttpRequest\b`), "network access (XMLHttpRequest) is not available to scripts"},
	{CategoryNetwork, regexp.MustCompile(`\bWebSocket\b`), "network access (WebSocket) is not available to scripts"},
	{CategoryNetwork, regexp.MustCompile(`\bEventSource\b`), "network access (EventSource) is not available to scripts"},
	{CategoryNetwork, regexp.MustCompile(`\bsendBeacon\b`), "network access (sendBeacon) is not available to scripts"},

	// Ambient I/O: storage.
	{CategoryStorage, regexp.MustCompile(`\blocalStorage\b`), "persistent storage (localStorage) is not available to scripts"},
	{CategoryStorage, regexp.MustCompile(`\bsessionStorage\b`), "persistent storage (sessionStorage) is not available to scripts"},
	{CategoryStorage, regexp.MustCompile(`\bindexedDB\b`), "persistent storage (indexedDB) is not available to scripts"},
	{CategoryStorage, regexp.MustCompile(`\bdocument\s*\.\s*cookie\b`), "cookie access is not available to scripts"},

	// Nested worker spawn.
	{CategoryWorker, regexp.MustCompile(`\bnew\s+Worker\b`), "spawning workers is not available to scripts"},
	{CategoryWorker, regexp.MustCompile(`\bSharedWorker\b`), "spawning workers is not available to scripts"},
	{CategoryWorker, regexp.MustCompile(`\bserviceWorker\b`), "service workers are not available to scripts"},
	{CategoryWorker, regexp.MustCompile(`\bimportScripts\s*\(`), "importScripts is not available to scripts"},

	// Cross-context messaging.
	{CategoryMessaging, regexp.MustCompile(`\bpostMessage\s*\(`), "cross-context messaging (postMessage) is not available to scripts"},
	{CategoryMessaging, regexp.MustCompile(`\bBroadcastChannel\b`), "cross-context messaging (BroadcastChannel) is not available to scripts"},
	{CategoryMessaging, regexp.MustCompile(`\bMessageChannel\b`), "cross-context messaging (MessageChannel) is not available to scripts"},

	// Dynamic code execution.
	{CategoryDynamicCode, regexp.MustCompile(`\beval\s*\(`), "dynamic code execution (eval) is not allowed"},
	{CategoryDynamicCode, regexp.MustCompile(`\bnew\s+Function\b`), "dynamic code execution (Function constructor) is not allowed"},
	{CategoryDynamicCode, regexp.MustCompile(`(^|[^.\w$])Function\s*\(`), "dynamic code execution (Function constructor) is not allowed"},
	{CategoryDynamicCode, regexp.MustCompile(`\bGeneratorFunction\b`), "dynamic code execution (GeneratorFunction) is not allowed"},
	{CategoryDynamicCode, regexp.MustCompile(`\bset(Timeout|Interval)\s*\(`), "timers are not available to scripts"},

	// Global-object escape routes.
	{CategoryGlobalEscape, regexp.MustCompile(`\bglobalThis\b`), "access to the global object is not allowed"},
	{CategoryGlobalEscape, regexp.MustCompile(`(^|[^.\w$])window\s*[.\[]`), "access to the host global scope (window) is not allowed"},
	{CategoryGlobalEscape, regexp.MustCompile(`(^|[^.\w$])self\s*[.\[]`), "access to the host global scope (self) is not allowed"},
	{CategoryGlobalEscape, regexp.MustCompile(`(^|[^.\w$])top\s*\.`), "access to the host global scope (top) is not allowed"},
	{CategoryGlobalEscape, regexp.MustCompile(`(^|[^.\w$])parent\s*\.`), "access to the host global scope (parent) is not allowed"},
	{CategoryGlobalEscape, regexp.MustCompile(`\bframes\s*\[`), "access to the host global scope (frames) is not allowed"},

	// Prototype / reflection tampering.
	{CategoryReflection, regexp.MustCompile(`__proto__`), "prototype tampering (__proto__) is not allowed"},
	{CategoryReflection, regexp.MustCompile(`\bObject\s*\.\s*(setPrototypeOf|getPrototypeOf|defineProperty|defineProperties)\b`), "prototype/reflection tampering via Object is not allowed"},
	{CategoryReflection, regexp.MustCompile(`\bReflect\s*\.`), "reflection via Reflect is not allowed"},
	{CategoryReflection, regexp.MustCompile(`\bconstructor\s*\.\s*constructor\b`), "constructor-chain escape is not allowed"},
	{CategoryReflection, regexp.MustCompile(`\.\s*prototype\b`), "prototype access is not allowed"},

	// this-rebinding tricks.
	{CategoryThisRebinding, regexp.MustCompile(`\.\s*(call|apply|bind)\s*\(\s*(null|undefined|globalThis|this)\b`), "rebinding this to escape the sandbox is not allowed"},
	{CategoryThisRebinding, regexp.MustCompile(`\bfunction\s*\(\s*\)\s*\{\s*return\s+this\b`), "capturing the global this is not allowed"},

	// Common obfuscation idioms.
	{CategoryObfuscation, regexp.MustCompile(`\bString\s*\.\s*from(CharCode|CodePoint)\b`), "char-code string building is not allowed"},
	{CategoryObfuscation, regexp.MustCompile(`\b(atob|btoa)\s*\(`), "base64 encoding helpers are not allowed"},
	{CategoryObfuscation, regexp.MustCompile(`\\u\{?[0-9a-fA-F]`), "unicode escapes in identifiers are not allowed"},
}

// Script validates the given source. It is pure text analysis and
// never executes anything.
func Script(source string) Verdict {
	masked := maskSource(source)

	var reasons []Reason
	for _, r := range rules {
		for _, loc := range r.pattern.FindAllStringIndex(masked, -1) {
			match := strings.TrimSpace(masked[loc[0]:loc[1]])
			reasons = append(reasons, Reason{
				Category: r.category,
				Message:  fmt.Sprintf("%s: %q", r.message, match),
				Line:     1 + strings.Count(masked[:loc[0]], "\n"),
			})
		}
	}

	sort.SliceStable(reasons, func(i, j int) bool {
		return reasons[i].Line < reasons[j].Line
	})

	return Verdict{Valid: len(reasons) == 0, Reasons: reasons}
}
