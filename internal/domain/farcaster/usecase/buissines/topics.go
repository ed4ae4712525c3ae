package buissines

import (
	"sort"

	"github.com/nooksocial/nook-engine/internal/domain/farcaster/entities"
)

// contentTopics derives the inverted-index rows for a content record.
// Regenerating from the same content and resolved ancestors always yields
// the same set: the result is deduplicated and sorted by (type, value).
func contentTopics(content, parent, root *entities.Content) []entities.Topic {
	topics := []entities.Topic{
		{Type: entities.TopicSourceEntity, Value: content.AuthorEntityID},
		{Type: entities.TopicSourceContent, Value: content.ContentID},
	}

	for _, mention := range parseMentions(content.Mentions) {
		topics = append(topics, entities.Topic{Type: entities.TopicSourceTag, Value: mention.EntityID})
	}
	for _, embed := range parseEmbeds(content.Embeds) {
		topics = append(topics, entities.Topic{Type: entities.TopicSourceEmbed, Value: embed})
	}
	if content.ChannelURL != "" {
		topics = append(topics, entities.Topic{Type: entities.TopicChannel, Value: content.ChannelURL})
	}

	if parent != nil {
		topics = append(topics,
			entities.Topic{Type: entities.TopicTargetEntity, Value: parent.AuthorEntityID},
			entities.Topic{Type: entities.TopicTargetContent, Value: parent.ContentID},
		)
		for _, mention := range parseMentions(parent.Mentions) {
			topics = append(topics, entities.Topic{Type: entities.TopicTargetTag, Value: mention.EntityID})
		}
		for _, embed := range parseEmbeds(parent.Embeds) {
			topics = append(topics, entities.Topic{Type: entities.TopicTargetEmbed, Value: embed})
		}
	}

	if root != nil {
		topics = append(topics,
			entities.Topic{Type: entities.TopicRootTargetEntity, Value: root.AuthorEntityID},
			entities.Topic{Type: entities.TopicRootTargetContent, Value: root.ContentID},
		)
		for _, embed := range parseEmbeds(root.Embeds) {
			topics = append(topics, entities.Topic{Type: entities.TopicTargetEmbed, Value: embed})
		}
	}

	return dedupeTopics(topics)
}

// reactionTopics derives the inverted-index rows for a reaction action.
func reactionTopics(entityID string, target *entities.Content) []entities.Topic {
	topics := []entities.Topic{
		{Type: entities.TopicSourceEntity, Value: entityID},
		{Type: entities.TopicTargetEntity, Value: target.AuthorEntityID},
		{Type: entities.TopicTargetContent, Value: target.ContentID},
	}

	if target.RootContentID != "" && target.RootContentID != target.ContentID {
		topics = append(topics,
			entities.Topic{Type: entities.TopicRootTargetEntity, Value: target.RootEntityID},
			entities.Topic{Type: entities.TopicRootTargetContent, Value: target.RootContentID},
		)
	}
	if target.ChannelURL != "" {
		topics = append(topics, entities.Topic{Type: entities.TopicChannel, Value: target.ChannelURL})
	}
	for _, embed := range parseEmbeds(target.Embeds) {
		topics = append(topics, entities.Topic{Type: entities.TopicTargetEmbed, Value: embed})
	}

	return dedupeTopics(topics)
}

// removeTopics derives the minimal rows for a remove action whose target
// content may not exist locally.
func removeTopics(entityID, targetContentID string) []entities.Topic {
	return dedupeTopics([]entities.Topic{
		{Type: entities.TopicSourceEntity, Value: entityID},
		{Type: entities.TopicTargetContent, Value: targetContentID},
	})
}

// followTopics derives the inverted-index rows for a follow edge action.
func followTopics(entityID, targetEntityID string) []entities.Topic {
	return dedupeTopics([]entities.Topic{
		{Type: entities.TopicSourceEntity, Value: entityID},
		{Type: entities.TopicTargetEntity, Value: targetEntityID},
	})
}

// verificationTopics derives the inverted-index rows for an address link action.
func verificationTopics(entityID, addressURI string) []entities.Topic {
	return dedupeTopics([]entities.Topic{
		{Type: entities.TopicSourceEntity, Value: entityID},
		{Type: entities.TopicSourceEmbed, Value: addressURI},
	})
}

func dedupeTopics(topics []entities.Topic) []entities.Topic {
	seen := make(map[entities.Topic]struct{}, len(topics))
	result := make([]entities.Topic, 0, len(topics))

	for _, topic := range topics {
		if topic.Value == "" {
			continue
		}
		if _, ok := seen[topic]; ok {
			continue
		}
		seen[topic] = struct{}{}
		result = append(result, topic)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Type != result[j].Type {
			return result[i].Type < result[j].Type
		}
		return result[i].Value < result[j].Value
	})

	return result
}
