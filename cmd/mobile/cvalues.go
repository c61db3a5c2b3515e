//go:build cgo

package main

/*
#include <stdint.h>
#include <stdlib.h>

#include "toodle.h"

static uint64_t toodle_seen_list;

static int32_t toodle_keep_list(uint64_t list, void *user_data) {
	(void)user_data;
	toodle_seen_list = list;
	return 0;
}

static int32_t toodle_refuse_list(uint64_t list, void *user_data) {
	(void)user_data;
	toodle_seen_list = list;
	return 7;
}

static uint64_t toodle_last_list(void) {
	return toodle_seen_list;
}
*/
import "C"
import "unsafe"

// C-side values for driving the exported entry points from Go. _test.go
// files cannot use cgo, so the tests in this package build their arguments
// here.

type (
	cChar   = C.char
	cInt32  = C.int32_t
	cInt64  = C.int64_t
	cUint64 = C.uint64_t
)

func cText(s string) *C.char {
	return C.CString(s)
}

func cFree(p *C.char) {
	C.free(unsafe.Pointer(p))
}

func goText(p *C.char) string {
	return C.GoString(p)
}

func cEpoch(secs int64) *C.int64_t {
	v := C.int64_t(secs)
	return &v
}

func newHandleOut() *C.uint64_t {
	return new(C.uint64_t)
}

func newCountOut() *C.int64_t {
	return new(C.int64_t)
}

func newPresentOut() *C.int32_t {
	return new(C.int32_t)
}

func newTextOut() **C.char {
	return new(*C.char)
}

// keepList is a callback that records the list it was lent and succeeds.
func keepList() C.toodle_items_fn {
	return C.toodle_items_fn(C.toodle_keep_list)
}

// refuseList records the list it was lent and returns non-zero.
func refuseList() C.toodle_items_fn {
	return C.toodle_items_fn(C.toodle_refuse_list)
}

// lastLentList is the list handle most recently seen by keepList or refuseList.
func lastLentList() uint64 {
	return uint64(C.toodle_last_list())
}
