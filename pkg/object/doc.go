// Package object implements commandable BACnet objects: objects whose
// present value is arbitrated by a 16-slot priority array.
//
// One generic engine, Commandable, serves every such object type. The
// object types differ only in the application tag of their values:
//
//   - Positive Integer Value: unsigned present value and increment
//   - Integer Value: signed present value, unsigned increment
//   - Analog Value: real present value and increment
//
// # Priority Arbitration
//
// The present value is the value at the highest occupied priority (1 is
// highest), or the relinquish default when every slot is relinquished. It
// is resolved on every access and never cached. Priority 6 is reserved for
// minimum on/off handling: remote writes to it are refused with
// write-access-denied, while SetPresentValue accepts it for local logic.
//
// # Change of Value
//
// Every effective change of the present value is compared against the
// last latched value. When the difference reaches the COV increment the
// sticky changed flag is set and the new value is latched. The flag stays
// set until ClearChangeOfValue or TakeChangeOfValue acknowledges it.
// TakeChangeOfValue reads the value list and clears the flag under one
// lock. An out-of-service transition also sets it.
//
// # Property Access
//
// ReadProperty and WriteProperty take decoded requests and a caller-owned
// buffer. Errors are *bacnet.Error values that can be matched with
// errors.Is against the bacnet sentinels. Only array properties accept an
// array index. A rejected write leaves the object untouched.
//
// # Concurrency
//
// Each object type guards its registry with a mutex. Every exported method
// runs as one atomic step, so a write and a concurrent read never observe
// a partially applied command.
package object
