// Package bacnet defines the BACnet protocol enumerations shared by the
// object engine, the device layer and the wire envelope.
//
// # Identifiers
//
// Objects are addressed by an ObjectID, the pair (ObjectType, instance).
// On the wire the pair is packed into 32 bits: 10 bits of object type
// followed by a 22-bit instance number. The instance MaxInstance (4194303)
// is never a real object; it denotes "not found" in lookups and "assign one
// for me" when creating objects.
//
// # Errors
//
// Every property-access failure is reported as an (ErrorClass, ErrorCode)
// pair. The Error type carries that pair as a Go error and supports
// errors.Is against the sentinel values declared in this package:
//
//	if errors.Is(err, bacnet.ErrUnknownObject) {
//	    ...
//	}
//
// # Priorities
//
// Commandable properties are written at a priority in 1..MaxPriority.
// Priority 1 is the highest. Priority MinimumOnOffPriority (6) is reserved
// for minimum on/off time handling and cannot be commanded remotely.
package bacnet
