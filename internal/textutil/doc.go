// Package textutil provides filename and cache-key sanitizing.
package textutil
