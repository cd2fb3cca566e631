package config

// BundleFileExt is the extension of compressed input bundles.
const BundleFileExt = ".uvb"

// DumpFileExt is the extension of compressed IR dumps.
const DumpFileExt = ".uvd"

// DefaultReportPath is used when a profile enables reporting without
// naming a path.
const DefaultReportPath = "unvirt-report.db"
