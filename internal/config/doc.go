// Package config loads the depthd configuration from a YAML file.
//
// Load(path) reads the file, applies defaults for missing fields and
// validates the result. Watch(ctx, path, fn) hot-reloads the file with
// fsnotify and calls fn with every config that parses and validates; a broken
// edit is logged and the previous config stays active.
//
// Secrets are never stored in the file: auth keys and webhook URLs are read
// from the environment variables named by key_env / url_env.
package config
