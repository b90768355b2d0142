package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dop251/goja"
)

// intrinsicsProgram captures the definitions introspection depends on
// before any user script has a chance to replace them.
var intrinsicsProgram = goja.MustCompile("intrinsics.js", `({
	getOwnPropertyDescriptor: Object.getOwnPropertyDescriptor,
	functionToString: Function.prototype.toString,
	isArray: Array.isArray,
	dateToISOString: Date.prototype.toISOString,
	regexpToString: RegExp.prototype.toString,
	symbolDescription: Object.getOwnPropertyDescriptor(Symbol.prototype, "description").get,
	Symbol: Symbol,
	Function: Function,
	Date: Date,
	RegExp: RegExp,
})`, false)

// Engine is one goja runtime plus its captured intrinsics.
type Engine struct {
	rt     *goja.Runtime
	logger *slog.Logger

	getOwnPropertyDescriptor goja.Callable
	functionToString         goja.Callable
	isArray                  goja.Callable
	dateToISOString          goja.Callable
	regexpToString           goja.Callable
	symbolDescription        goja.Callable
	symbolCtor               goja.Callable

	functionCtor goja.Value
	dateCtor     goja.Value
	regexpCtor   goja.Value
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for engine diagnostics.
// Default: a logger that discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{rt: goja.New()}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	v, err := e.rt.RunProgram(intrinsicsProgram)
	if err != nil {
		return nil, fmt.Errorf("capture intrinsics: %w", err)
	}
	obj := v.ToObject(e.rt)

	callables := []struct {
		name string
		dst  *goja.Callable
	}{
		{"getOwnPropertyDescriptor", &e.getOwnPropertyDescriptor},
		{"functionToString", &e.functionToString},
		{"isArray", &e.isArray},
		{"dateToISOString", &e.dateToISOString},
		{"regexpToString", &e.regexpToString},
		{"symbolDescription", &e.symbolDescription},
		{"Symbol", &e.symbolCtor},
	}
	for _, c := range callables {
		fn, ok := goja.AssertFunction(obj.Get(c.name))
		if !ok {
			return nil, fmt.Errorf("capture intrinsics: %s is not callable", c.name)
		}
		*c.dst = fn
	}

	e.functionCtor = obj.Get("Function")
	e.dateCtor = obj.Get("Date")
	e.regexpCtor = obj.Get("RegExp")

	e.logger.Debug("engine ready")
	return e, nil
}

// Runtime returns the wrapped goja runtime.
func (e *Engine) Runtime() *goja.Runtime {
	return e.rt
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Run compiles and runs src as a sloppy-mode script and returns its
// completion value. name is used in stack traces.
func (e *Engine) Run(name, src string) (goja.Value, error) {
	prg, err := goja.Compile(name, src, false)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	v, err := e.rt.RunProgram(prg)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", name, err)
	}
	return v, nil
}

// Try runs f, turning a script exception raised while it runs into an
// error. Errors returned by f pass through unchanged.
func (e *Engine) Try(f func() error) error {
	var err error
	if ex := e.rt.Try(func() { err = f() }); ex != nil {
		return ex
	}
	return err
}

// Call invokes fn with the given receiver and arguments.
func (e *Engine) Call(fn goja.Value, this goja.Value, args ...goja.Value) (goja.Value, error) {
	call, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, ErrNotCallable
	}
	if this == nil {
		this = goja.Undefined()
	}
	return call(this, args...)
}

// ErrNotCallable is returned when a value expected to be a function is not.
var ErrNotCallable = errors.New("value is not callable")

// IsCallable reports whether v is a function object.
func IsCallable(v goja.Value) bool {
	_, ok := goja.AssertFunction(v)
	return ok
}

// Compiles reports whether src parses as a script.
func Compiles(src string) bool {
	_, err := goja.Compile("", src, false)
	return err == nil
}

// IsArray applies the captured Array.isArray to v.
func (e *Engine) IsArray(v goja.Value) (bool, error) {
	res, err := e.isArray(goja.Undefined(), v)
	if err != nil {
		return false, err
	}
	return res.ToBoolean(), nil
}

// FunctionSource returns the text Function.prototype.toString produces for fn.
func (e *Engine) FunctionSource(fn *goja.Object) (string, error) {
	res, err := e.functionToString(fn)
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// InvalidDate is the text form of a Date whose time value is NaN.
const InvalidDate = "Invalid Date"

// DateText returns the ISO-8601 form of d, or InvalidDate when d holds no
// valid time.
func (e *Engine) DateText(d *goja.Object) string {
	res, err := e.dateToISOString(d)
	if err != nil {
		return InvalidDate
	}
	return res.String()
}

// RegExpText returns the literal form /source/flags of r.
func (e *Engine) RegExpText(r *goja.Object) (string, error) {
	res, err := e.regexpToString(r)
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// NewDate constructs a Date from its text form.
func (e *Engine) NewDate(text string) (*goja.Object, error) {
	return e.rt.New(e.dateCtor, e.rt.ToValue(text))
}

// NewRegExp constructs a RegExp from a pattern and flags.
func (e *Engine) NewRegExp(pattern, flags string) (*goja.Object, error) {
	return e.rt.New(e.regexpCtor, e.rt.ToValue(pattern), e.rt.ToValue(flags))
}

// SymbolDescription returns the description of s, and false for a symbol
// created without one.
func (e *Engine) SymbolDescription(s *goja.Symbol) (string, bool) {
	res, err := e.symbolDescription(s)
	if err != nil || goja.IsUndefined(res) {
		return "", false
	}
	return res.String(), true
}

// NewSymbol creates a fresh symbol with the given description, or with
// none when desc is nil.
func (e *Engine) NewSymbol(desc *string) (*goja.Symbol, error) {
	if desc != nil {
		return goja.NewSymbol(*desc), nil
	}
	res, err := e.symbolCtor(goja.Undefined())
	if err != nil {
		return nil, err
	}
	sym, ok := res.(*goja.Symbol)
	if !ok {
		return nil, fmt.Errorf("symbol constructor returned %s", res)
	}
	return sym, nil
}

// NewFunction is the captured Function constructor: new Function(params..., body).
func (e *Engine) NewFunction(params []string, body string) (*goja.Object, error) {
	args := make([]goja.Value, 0, len(params)+1)
	for _, p := range params {
		args = append(args, e.rt.ToValue(p))
	}
	args = append(args, e.rt.ToValue(body))
	return e.rt.New(e.functionCtor, args...)
}
