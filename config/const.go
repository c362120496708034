package config

import "strings"

// AppVersion is the version of the application, injected at build time.
var AppVersion string

// AppName is the name of the application.
const AppName = "DailyWallpaper"

// LogWinSubDir is the sub directory for the log files on windows.
var LogWinSubDir = AppName

// LogSubDir is the sub directory for the log files.
var LogSubDir = "." + strings.ToLower(AppName)

// LogExt is the extension for the log files.
var LogExt = ".log"

// CacheDBFile is the file name of the crop decision cache database.
const CacheDBFile = "crop_cache.db"

// SettingsFile is the file name of the persisted crop settings.
const SettingsFile = "crop_settings.json"
