package eval

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/dop251/goja"
)

// console captures log output the way the tutorials rely on: a leading format
// string consumes operands via %s/%d/%i/%j, remaining operands are joined by
// single spaces, one line per call, strings printed bare. log, info, warn and
// error all write to the same buffer in call order; severity routing is a
// terminal concern, not an output-content one.
type console struct {
	vm  *goja.Runtime
	buf bytes.Buffer
}

func (c *console) object() *goja.Object {
	obj := c.vm.NewObject()
	for _, name := range []string{"log", "info", "warn", "error"} {
		_ = obj.Set(name, c.log)
	}
	return obj
}

func (c *console) log(call goja.FunctionCall) goja.Value {
	args := call.Arguments
	used := 0

	var parts []string
	if len(args) > 0 {
		if format, ok := args[0].Export().(string); ok && strings.ContainsRune(format, '%') {
			var formatted string
			formatted, used = applyFormat(format, args[1:])
			used++
			parts = append(parts, formatted)
		}
	}
	for _, arg := range args[used:] {
		parts = append(parts, formatValue(arg))
	}

	c.buf.WriteString(strings.Join(parts, " "))
	c.buf.WriteByte('\n')
	return goja.Undefined()
}

// applyFormat substitutes the %s/%d/%i/%j/%% subset of util.format into
// format, consuming operands left to right. A specifier with no operand left
// is printed verbatim, matching Node. Returns the result and how many
// operands were consumed.
func applyFormat(format string, args []goja.Value) (string, int) {
	var sb strings.Builder
	used := 0

	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 == len(format) {
			sb.WriteByte(format[i])
			continue
		}
		verb := format[i+1]
		if verb == '%' {
			sb.WriteByte('%')
			i++
			continue
		}
		if !strings.ContainsRune("sdij", rune(verb)) || used >= len(args) {
			sb.WriteByte('%')
			continue
		}

		arg := args[used]
		used++
		i++
		switch verb {
		case 's':
			sb.WriteString(formatValue(arg))
		case 'd':
			// Number conversion, printed as JS prints it (42.9 stays 42.9).
			sb.WriteString(arg.ToNumber().String())
		case 'i':
			sb.WriteString(formatInteger(arg))
		case 'j':
			if b, err := json.Marshal(arg.Export()); err == nil {
				sb.Write(b)
			} else {
				sb.WriteString("undefined")
			}
		}
	}
	return sb.String(), used
}

// formatInteger renders a %i operand truncated toward zero; the non-finite
// values print as JS spells them.
func formatInteger(v goja.Value) string {
	f := v.ToFloat()
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatInt(int64(f), 10)
}

// mark returns the current buffer position; since returns a copy of
// everything written after it. Together they scope output per example while
// one VM persists across the document.
func (c *console) mark() int {
	return c.buf.Len()
}

func (c *console) since(mark int) []byte {
	out := c.buf.Bytes()[mark:]
	cp := make([]byte, len(out))
	copy(cp, out)
	return cp
}

// formatValue renders one console operand.
//
// Primitives use the engine's ToString (so numbers print as JS prints them:
// 5, 2.5, NaN, Infinity). Objects and arrays render as compact JSON, which is
// what tutorial `// Output:` comments conventionally show.
func formatValue(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}

	if t := v.ExportType(); t != nil {
		switch t.Kind() {
		case reflect.Map, reflect.Slice:
			if b, err := json.Marshal(v.Export()); err == nil {
				return string(b)
			}
		}
	}
	return v.String()
}
