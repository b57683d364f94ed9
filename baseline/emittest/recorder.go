// Package emittest provides a Recorder implementation of baseline.Emitter
// for tests: instead of producing machine code, it appends a human
// readable trace of every primitive call, so tests can assert on the
// sequence of cache-state decisions the compiler made without depending
// on any concrete architecture backend.
package emittest

import (
	"fmt"

	"github.com/wippyai/wasm-baseline/baseline"
)

// Recorder is a baseline.Emitter that records every call instead of
// emitting bytes. Trace lines are in call order and use the same register
// and label naming the compiler itself would see, making them suitable
// for golden-style test assertions.
type Recorder struct {
	Trace []string
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{}
}

func (r *Recorder) log(format string, args ...any) {
	r.Trace = append(r.Trace, fmt.Sprintf(format, args...))
}

func regStr(reg baseline.Reg) string {
	return fmt.Sprintf("%s%d", reg.Class, reg.Num)
}

func (r *Recorder) Bind(label baseline.LabelID) { r.log("bind L%d", label) }
func (r *Recorder) Jmp(label baseline.LabelID)  { r.log("jmp L%d", label) }
func (r *Recorder) JumpIfZero(reg baseline.Reg, label baseline.LabelID) {
	r.log("jz %s L%d", regStr(reg), label)
}

func (r *Recorder) EnterFrame()               { r.log("enter_frame") }
func (r *Recorder) ReserveStackSpace(n int)   { r.log("reserve %d", n) }
func (r *Recorder) LeaveFrame()               { r.log("leave_frame") }
func (r *Recorder) Ret()                      { r.log("ret") }

func (r *Recorder) Move(dst, src baseline.Reg) { r.log("move %s <- %s", regStr(dst), regStr(src)) }
func (r *Recorder) LoadConstant(reg baseline.Reg, value int64) {
	r.log("load_const %s <- %d", regStr(reg), value)
}

func (r *Recorder) Load(reg, baseReg baseline.Reg, offset int32, size int) {
	r.log("load %s <- [%s+%d]:%d", regStr(reg), regStr(baseReg), offset, size)
}
func (r *Recorder) Store(baseReg baseline.Reg, offset int32, reg baseline.Reg, size int) {
	r.log("store [%s+%d]:%d <- %s", regStr(baseReg), offset, size, regStr(reg))
}

func (r *Recorder) Spill(offset int32, reg baseline.Reg) {
	r.log("spill [%d] <- %s", offset, regStr(reg))
}
func (r *Recorder) Fill(reg baseline.Reg, offset int32) {
	r.log("fill %s <- [%d]", regStr(reg), offset)
}

func (r *Recorder) LoadFromContext(reg baseline.Reg, offset int32, size int) {
	r.log("load_ctx %s <- [ctx+%d]:%d", regStr(reg), offset, size)
}
func (r *Recorder) SpillContext(reg baseline.Reg, offset int32) {
	r.log("spill_ctx [ctx+%d] <- %s", offset, regStr(reg))
}

func (r *Recorder) LoadCallerFrameSlot(reg baseline.Reg, slotIndex int) {
	r.log("load_param %s <- param[%d]", regStr(reg), slotIndex)
}
func (r *Recorder) MoveToReturnRegister(reg baseline.Reg, class baseline.RegClass) {
	r.log("move_ret[%s] <- %s", class, regStr(reg))
}

func (r *Recorder) I32Add(dst, lhs, rhs baseline.Reg) { r.logBinop("i32.add", dst, lhs, rhs) }
func (r *Recorder) I32Sub(dst, lhs, rhs baseline.Reg) { r.logBinop("i32.sub", dst, lhs, rhs) }
func (r *Recorder) I32Mul(dst, lhs, rhs baseline.Reg) { r.logBinop("i32.mul", dst, lhs, rhs) }
func (r *Recorder) I32And(dst, lhs, rhs baseline.Reg) { r.logBinop("i32.and", dst, lhs, rhs) }
func (r *Recorder) I32Or(dst, lhs, rhs baseline.Reg)  { r.logBinop("i32.or", dst, lhs, rhs) }
func (r *Recorder) I32Xor(dst, lhs, rhs baseline.Reg) { r.logBinop("i32.xor", dst, lhs, rhs) }

func (r *Recorder) F32Add(dst, lhs, rhs baseline.Reg) { r.logBinop("f32.add", dst, lhs, rhs) }
func (r *Recorder) F32Sub(dst, lhs, rhs baseline.Reg) { r.logBinop("f32.sub", dst, lhs, rhs) }
func (r *Recorder) F32Mul(dst, lhs, rhs baseline.Reg) { r.logBinop("f32.mul", dst, lhs, rhs) }

func (r *Recorder) logBinop(op string, dst, lhs, rhs baseline.Reg) {
	r.log("%s %s <- %s, %s", op, regStr(dst), regStr(lhs), regStr(rhs))
}
