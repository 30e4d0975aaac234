package models

// Host holds the static facts for a monitored entity. These change only
// when the machine itself changes, so the authoritative roster wins over
// anything reported on the live feed.
type Host struct {
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	KernelVersion   string `json:"kernel_version"`
	Arch            string `json:"arch"`
	Virtualization  string `json:"virtualization"`
	MemTotal        uint64 `json:"mem_total"`
	SwapTotal       uint64 `json:"swap_total"`
	DiskTotal       uint64 `json:"disk_total"`
	BootTime        uint64 `json:"boot_time"`
}
