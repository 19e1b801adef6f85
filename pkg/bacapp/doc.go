// Package bacapp implements the BACnet application-tagged value encoding
// used for property values on the wire.
//
// Every value starts with a tag octet carrying the tag number in the high
// nibble and a length/value/type field in the low nibble. Lengths above
// four octets use the extended forms. Booleans carry their value in the
// length field and have no content octets.
//
//	buf := make([]byte, bacapp.MaxAPDU)
//	n, err := bacapp.Encode(buf, bacapp.Unsigned(42))
//	v, _, err := bacapp.Decode(buf[:n])
package bacapp
