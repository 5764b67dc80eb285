/*
File Name:  Version.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner

Version is the canonical StorageValue: major.minor.patch, each component a 7-bit unsigned value,
encoded 1 to 3 bytes depending on how many trailing components are non-zero.
*/

package protocol

import "fmt"

// Version identifies the protocol revision a peer speaks, exchanged in the Handshake and Announcement
// packets.
type Version struct {
	Major, Minor, Patch uint8
}

// WriteTo encodes the version using the reader's convention: a component's continuation bit is set
// whenever a later component is non-zero, not just the immediately following one. This is the
// resolution adopted for the asymmetry between the original writer and reader (see DESIGN.md).
func (v Version) WriteTo(buf *Buffer) error {
	hasPatch := v.Patch != 0
	hasMinor := v.Minor != 0 || hasPatch

	major := v.Major & 0x7F
	if hasMinor {
		major |= 0x80
	}
	if err := buf.WriteByte(major); err != nil {
		return err
	}
	if !hasMinor {
		return nil
	}

	minor := v.Minor & 0x7F
	if hasPatch {
		minor |= 0x80
	}
	if err := buf.WriteByte(minor); err != nil {
		return err
	}
	if !hasPatch {
		return nil
	}

	return buf.WriteByte(v.Patch & 0x7F)
}

// ReadFrom decodes a version, continuing to the next component as long as the current byte's high bit
// is set.
func (v *Version) ReadFrom(buf *Buffer) error {
	major, err := buf.ReadByte()
	if err != nil {
		return err
	}
	v.Major = major & 0x7F
	v.Minor, v.Patch = 0, 0
	if major&0x80 == 0 {
		return nil
	}

	minor, err := buf.ReadByte()
	if err != nil {
		return err
	}
	v.Minor = minor & 0x7F
	if minor&0x80 == 0 {
		return nil
	}

	patch, err := buf.ReadByte()
	if err != nil {
		return err
	}
	v.Patch = patch & 0x7F
	return nil
}

// String renders the version as "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
