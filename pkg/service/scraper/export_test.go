package scraper

var IsPublicAddr = isPublicAddr
