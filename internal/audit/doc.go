// Package audit writes the append-only security, audit and contact logs.
//
// Each log is a monthly file under one directory:
//
//	security_2006-01.log   2006-01-02 15:04:05 | ip | message
//	audit_2006-01.log      one JSON object per line
//	contact_2006-01.log    2006-01-02 15:04:05 | SUCCESS | ip | email | inquiry
//
// Recorder implements service.EventRecorder on top of these files. Prune
// applies the retention policy and ReadAudit serves the operator CLI.
package audit
