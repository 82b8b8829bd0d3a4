package service

import "tradepost/internal/models"

// CanViewContact reports whether the viewer may see a post's contact field.
// Admins and active subscribers see everything; owners always see their own
// posts. A viewerID of 0 means an anonymous visitor.
func CanViewContact(post *models.Post, viewerID uint, isAdmin, isSubscribed bool) bool {
	if isAdmin || isSubscribed {
		return true
	}
	return viewerID != 0 && viewerID == post.UserID
}

// RedactPost replaces the contact field with the hidden-contact marker when
// the viewer is not entitled to it. Safe to call repeatedly: a post already
// redacted stays redacted and an entitled view is never re-hidden.
func RedactPost(post *models.Post, viewerID uint, isAdmin, isSubscribed bool) {
	if post == nil {
		return
	}
	if !CanViewContact(post, viewerID, isAdmin, isSubscribed) {
		post.ContactInfo = models.HiddenContactInfo
	}
}

// RedactPosts applies RedactPost to every post in the slice.
func RedactPosts(posts []models.Post, viewerID uint, isAdmin, isSubscribed bool) {
	for i := range posts {
		RedactPost(&posts[i], viewerID, isAdmin, isSubscribed)
	}
}
