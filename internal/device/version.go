package device

import "fmt"

// Version is a semantic version triple.
type Version struct {
	Major, Minor, Patch uint16
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Versions lists the version of every protocol the device speaks.
type Versions struct {
	Firmware       Version
	DeviceProtocol Version
	ModuleProtocol Version
	UserConfig     Version
	HardwareConfig Version
	SmartMacros    Version
}

// DefaultVersions are reported unless overridden with WithVersions.
var DefaultVersions = Versions{
	Firmware:       Version{11, 1, 0},
	DeviceProtocol: Version{4, 8, 0},
	ModuleProtocol: Version{4, 3, 0},
	UserConfig:     Version{8, 0, 0},
	HardwareConfig: Version{1, 0, 0},
	SmartMacros:    Version{2, 4, 0},
}

// DataModelVersion is the major user configuration version.
var DataModelVersion = DefaultVersions.UserConfig.Major

// PropertyID selects a value reported by Property.
type PropertyID uint8

const (
	PropertyUsbProtocolVersion PropertyID = iota
	PropertyBridgeProtocolVersion
	PropertyDataModelVersion
	PropertyFirmwareVersion
	PropertyHardwareConfigSize
	PropertyUserConfigSize
)

func (id PropertyID) String() string {
	switch id {
	case PropertyUsbProtocolVersion:
		return "usb_protocol_version"
	case PropertyBridgeProtocolVersion:
		return "bridge_protocol_version"
	case PropertyDataModelVersion:
		return "data_model_version"
	case PropertyFirmwareVersion:
		return "firmware_version"
	case PropertyHardwareConfigSize:
		return "hardware_config_size"
	case PropertyUserConfigSize:
		return "user_config_size"
	default:
		return fmt.Sprintf("property(%d)", uint8(id))
	}
}
