// Package lower implements spec.md §4.4: the lowering driver that walks a
// specialized InvokeEntry's body and emits backend instructions under the
// sentinel-return ABI, maintaining the per-function value stack that gives
// every scope's owned values LIFO destruction on every exit path.
package lower

import (
	"fmt"

	"github.com/clay-lang/claycore/internal/backend"
	"github.com/clay-lang/claycore/internal/env"
	"github.com/clay-lang/claycore/internal/types"
	"github.com/clay-lang/claycore/internal/values"
)

// EntryKind discriminates a ValueStackEntry (spec.md §4.4's "value stack of
// scoped entries ({LocalValue | FinallyStatement | OnErrorStatement})").
type EntryKind int

const (
	LocalValue EntryKind = iota
	FinallyStatement
	OnErrorStatement
)

// ValueStackEntry is one scoped cleanup obligation. LocalValue entries own
// Value and are destroyed by calling Destroy; Finally/OnError entries carry
// an opaque Run thunk the statement lowerer installs (running the cloned
// finally/onerror body under its captured scope).
type ValueStackEntry struct {
	Kind  EntryKind
	Value values.CValue    // set when Kind == LocalValue
	Run   func(ctx *Context, exceptional bool) error // set when Kind is a pending statement
}

// JumpTarget is a labeled block reachable by a structured jump (return,
// break, continue, or the nearest exception handler), paired with the
// value-stack marker recorded when it was pushed (spec.md §4.4, §5 "the
// value stack's marker discipline").
type JumpTarget struct {
	Block    values.Handle
	Marker   int
	UseCount int

	// ReturnSlots holds the per-position output-pointer handles a return
	// target evaluates into (spec.md §4.4's "evaluate into the entry's
	// return slots"). Only set on return targets; a force-inlined call
	// pushes its own nested return target with freshly allocated slots so
	// a `return` inside the inlined body fills the call's own out-params
	// rather than the enclosing function's.
	ReturnSlots []values.Handle
}

// Destroyer invokes a type's destructor (if any) on an owned CValue; the
// lowering driver supplies the concrete implementation, which resolves and
// lowers the user (or builtin) destructor as an ordinary call. A nil
// Destroy func is treated as "this type has no destructor".
type Destroyer func(ctx *Context, v values.CValue) error

// Context is the per-function LoweringContext of spec.md §4.4: init block,
// code block, return block, exception block, plus the scoped bookkeeping
// that makes destruction order and jump targets correct under every exit
// path.
type Context struct {
	Backend backend.Backend
	Destroy Destroyer

	Fn        values.Handle
	InitBlock values.Handle
	ReturnBlock values.Handle
	ExceptionBlock values.Handle

	valueStack []ValueStackEntry

	returnTargets    []JumpTarget
	exceptionTargets []JumpTarget
	breakTargets     []JumpTarget
	continueTargets  []JumpTarget

	// exceptionSlot merges every raise site's sentinel into one backend
	// location a function's exception block can load, since several call
	// sites can all branch into that same shared block and the Backend
	// interface has no Phi instruction (same reasoning as the And/Or
	// short-circuit merge slot). Lazily allocated by ExceptionSlot.
	exceptionSlot values.Handle

	// allocatedSlots/discardedSlots pool backend stack slots by Clay type so
	// repeated same-shaped temporaries reuse one alloca (spec.md §5, "the
	// temp-slot pools ... recycle backend stack slots by equal backend type
	// to keep emitted IR compact").
	allocatedSlots map[string][]values.Handle
	discardedSlots map[string][]values.Handle

	InlineDepth     int
	CallByNameDepth int
	CheckExceptions bool

	// ExceptionValue is the cell the exception protocol stores the raised
	// sentinel into before branching to the nearest exception target.
	ExceptionValue values.Handle

	// Env mirrors the analyzer's scope chain, but bound to CValues instead
	// of PValues (env.Entry's EntryValue payload is `any` precisely so both
	// packages can reuse it, per internal/env's doc comment). Statement
	// lowering opens/closes nested frames the same way analysis does.
	Env *env.Env
}

// NewContext creates an empty LoweringContext bound to fn; the caller still
// needs to set InitBlock/ReturnBlock/ExceptionBlock once those blocks exist.
func NewContext(be backend.Backend, destroy Destroyer, fn values.Handle) *Context {
	return &Context{
		Backend:         be,
		Destroy:         destroy,
		Fn:              fn,
		CheckExceptions: true,
		Env:             env.New(),
	}
}

// Bind installs name -> cv in the current scope frame, mirroring the
// analyzer's env.EntryValue binding so a later Identifier looks up the
// same way analysis did, just against a CValue instead of a PValue.
func (c *Context) Bind(name string, cv values.CValue) {
	c.Env.Define(name, env.Entry{Kind: env.EntryValue, Value: cv})
}

// OpenScope pushes a nested env frame, returning the frame to restore with
// CloseScope once the lexical scope ends.
func (c *Context) OpenScope() *env.Env {
	prev := c.Env
	c.Env = env.NewEnclosed(prev)
	return prev
}

// CloseScope restores a frame captured by OpenScope.
func (c *Context) CloseScope(prev *env.Env) {
	c.Env = prev
}

// Marker returns the current value-stack depth, to be paired with a later
// UnwindTo call (spec.md Testable Property 6, "LIFO destruction").
func (c *Context) Marker() int { return len(c.valueStack) }

// PushLocal records v as an owned scope value, to be destroyed in LIFO
// order relative to every other entry pushed after the same marker.
func (c *Context) PushLocal(v values.CValue) {
	c.valueStack = append(c.valueStack, ValueStackEntry{Kind: LocalValue, Value: v})
}

// PushPending installs a finally/onerror thunk (spec.md §4.4 "Finally /
// OnError: push a pending-statement entry on the value stack; on scope
// unwind, run it").
func (c *Context) PushPending(kind EntryKind, run func(ctx *Context, exceptional bool) error) {
	if kind != FinallyStatement && kind != OnErrorStatement {
		panic("lower: PushPending requires FinallyStatement or OnErrorStatement")
	}
	c.valueStack = append(c.valueStack, ValueStackEntry{Kind: kind, Run: run})
}

// UnwindTo destroys every entry above marker in LIFO order — calling
// Destroy for LocalValue entries, and running pending statements (always
// for FinallyStatement, only when exceptional for OnErrorStatement) — then
// truncates the stack to marker. This is the single routine every
// statement-lowering exit path (block exit, break, continue, return,
// exception) funnels through, so Testable Property 6 holds uniformly.
func (c *Context) UnwindTo(marker int, exceptional bool) error {
	if marker > len(c.valueStack) {
		panic(fmt.Sprintf("lower: UnwindTo marker %d exceeds stack depth %d", marker, len(c.valueStack)))
	}
	for i := len(c.valueStack) - 1; i >= marker; i-- {
		entry := c.valueStack[i]
		switch entry.Kind {
		case LocalValue:
			if c.Destroy != nil {
				if err := c.Destroy(c, entry.Value); err != nil {
					return err
				}
			}
		case FinallyStatement:
			if err := entry.Run(c, exceptional); err != nil {
				return err
			}
		case OnErrorStatement:
			if exceptional {
				if err := entry.Run(c, exceptional); err != nil {
					return err
				}
			}
		}
	}
	c.valueStack = c.valueStack[:marker]
	return nil
}

// --- Jump target stacks ---

func (c *Context) PushReturnTarget(block values.Handle, slots []values.Handle) {
	c.returnTargets = append(c.returnTargets, JumpTarget{Block: block, Marker: c.Marker(), ReturnSlots: slots})
}
func (c *Context) PopReturnTarget() { c.returnTargets = c.returnTargets[:len(c.returnTargets)-1] }
func (c *Context) ReturnTarget() *JumpTarget {
	return &c.returnTargets[len(c.returnTargets)-1]
}

func (c *Context) PushExceptionTarget(block values.Handle) {
	c.exceptionTargets = append(c.exceptionTargets, JumpTarget{Block: block, Marker: c.Marker()})
}
func (c *Context) PopExceptionTarget() {
	c.exceptionTargets = c.exceptionTargets[:len(c.exceptionTargets)-1]
}
func (c *Context) HasExceptionTarget() bool { return len(c.exceptionTargets) > 0 }
func (c *Context) ExceptionTarget() *JumpTarget {
	return &c.exceptionTargets[len(c.exceptionTargets)-1]
}

func (c *Context) PushLoopTargets(breakBlock, continueBlock values.Handle) {
	c.breakTargets = append(c.breakTargets, JumpTarget{Block: breakBlock, Marker: c.Marker()})
	c.continueTargets = append(c.continueTargets, JumpTarget{Block: continueBlock, Marker: c.Marker()})
}
func (c *Context) PopLoopTargets() {
	c.breakTargets = c.breakTargets[:len(c.breakTargets)-1]
	c.continueTargets = c.continueTargets[:len(c.continueTargets)-1]
}
func (c *Context) BreakTarget() *JumpTarget    { return &c.breakTargets[len(c.breakTargets)-1] }
func (c *Context) ContinueTarget() *JumpTarget { return &c.continueTargets[len(c.continueTargets)-1] }
func (c *Context) InLoop() bool                { return len(c.breakTargets) > 0 }

// --- Temp-slot pools ---

// AllocSlot returns a backend alloca for backendType, reusing a previously
// discarded one of the identical backend type if available, else calling
// fresh to obtain a new slot.
func (c *Context) AllocSlot(backendType string, fresh func() values.Handle) values.Handle {
	if c.allocatedSlots == nil {
		c.allocatedSlots = map[string][]values.Handle{}
		c.discardedSlots = map[string][]values.Handle{}
	}
	if pool := c.discardedSlots[backendType]; len(pool) > 0 {
		h := pool[len(pool)-1]
		c.discardedSlots[backendType] = pool[:len(pool)-1]
		c.allocatedSlots[backendType] = append(c.allocatedSlots[backendType], h)
		return h
	}
	h := fresh()
	c.allocatedSlots[backendType] = append(c.allocatedSlots[backendType], h)
	return h
}

// DiscardSlot returns a previously allocated slot of the given backend type
// to the reuse pool.
func (c *Context) DiscardSlot(backendType string, h values.Handle) {
	if c.discardedSlots == nil {
		c.discardedSlots = map[string][]values.Handle{}
	}
	c.discardedSlots[backendType] = append(c.discardedSlots[backendType], h)
}

// ExceptionSlot returns the function's shared exception-sentinel slot,
// allocating it on first use.
func (c *Context) ExceptionSlot(sentinelType *types.Type) values.Handle {
	if c.exceptionSlot == nil {
		c.exceptionSlot = c.Backend.Alloca(sentinelType)
	}
	return c.exceptionSlot
}
