// Package confloader loads configuration with koanf.
//
// Sources, later overriding earlier:
//
//  1. Defaults already present in the target struct
//  2. YAML file
//  3. Environment variables (SEPT3_ prefix, "__" separates nesting levels)
//
// A .env file can seed the process environment first (LoadDotEnv). Watcher
// reports changes to the config file so callers can apply hot-reloadable
// settings.
package confloader
