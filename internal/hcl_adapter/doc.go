// Package hcl_adapter loads job definitions written in HCL.
package hcl_adapter
